/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"

	"github.com/recipeapp/apiserver/internal/db"
	"github.com/recipeapp/apiserver/internal/services"
	"github.com/recipeapp/apiserver/internal/store"
	"github.com/spf13/cobra"
)

var superuserFlags struct {
	email    string
	password string
	name     string
}

// createSuperuserCmd represents the createsuperuser command
var createSuperuserCmd = &cobra.Command{
	Use:   "createsuperuser",
	Short: "Create a staff account with superuser rights",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		conn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer conn.Close()

		users := services.NewUserService(store.NewUserRepository(conn))
		user, err := users.CreateSuperuser(
			cmd.Context(),
			superuserFlags.email,
			superuserFlags.password,
			services.WithName(superuserFlags.name),
		)
		if err != nil {
			if errors.Is(err, store.ErrConflict) {
				return fmt.Errorf("a user with email %q already exists", superuserFlags.email)
			}
			return err
		}

		cmd.Printf("superuser %s created (id %d)\n", user.Email, user.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createSuperuserCmd)

	createSuperuserCmd.Flags().StringVar(&superuserFlags.email, "email", "", "email address of the new user")
	createSuperuserCmd.Flags().StringVar(&superuserFlags.password, "password", "", "password of the new user")
	createSuperuserCmd.Flags().StringVar(&superuserFlags.name, "name", "", "display name")
	_ = createSuperuserCmd.MarkFlagRequired("email")
	_ = createSuperuserCmd.MarkFlagRequired("password")
}
