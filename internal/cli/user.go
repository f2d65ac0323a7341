package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/quickbills/billpay-api/internal/domain/user"
	"github.com/quickbills/billpay-api/internal/pkg/database"
	"github.com/quickbills/billpay-api/internal/pkg/jwt"
)

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userCreateCmd)
	userCmd.AddCommand(userTokenCmd)

	userCreateCmd.Flags().String("name", "", "Full name")
	userCreateCmd.Flags().Bool("admin", false, "Grant the admin role")
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage ledger accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create EMAIL",
	Short: "Create an account with an empty wallet",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserCreate,
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	isAdmin, _ := cmd.Flags().GetBool("admin")

	db, err := openDB()
	if err != nil {
		return err
	}
	defer database.Close(db)

	u := &user.User{Email: args[0], Fullname: name, Role: user.RoleUser}
	if isAdmin {
		u.Role = user.RoleAdmin
	}
	if err := user.NewRepository(db).Create(cmd.Context(), u); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", u.ID, u.Email, u.Role)
	return nil
}

var userTokenCmd = &cobra.Command{
	Use:   "token USER_ID",
	Short: "Issue an access token for an existing account",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserToken,
}

func runUserToken(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer database.Close(db)

	u, err := user.NewRepository(db).GetByID(cmd.Context(), id)
	if err != nil {
		return err
	}

	token, err := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL).GenerateAccessToken(u.ID, string(u.Role))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
