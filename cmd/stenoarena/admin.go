package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/verte-zerg/stenoarena/internal/auth"
	"github.com/verte-zerg/stenoarena/internal/config"
)

const passwordEnv = "STENOARENA_ADMIN_PASSWORD"

var (
	adminUsername string
	adminPassword string
)

func addAdminFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&adminUsername, "username", "", "admin username (default: from config, or admin)")
	cmd.PersistentFlags().StringVar(&adminPassword, "password", "", "admin password (default: $"+passwordEnv+" or prompt)")
}

// requireAdmin checks the admin credentials given by flag, environment or prompt.
func requireAdmin(cmd *cobra.Command, a *app) error {
	authenticator, err := auth.NewAuthenticator(
		config.String(a.cfg.Admin.Username, auth.DefaultAdminUsername),
		config.String(a.cfg.Admin.PasswordHash, ""),
	)
	if err != nil {
		return err
	}
	username := adminUsername
	if strings.TrimSpace(username) == "" {
		username = authenticator.Username()
	}
	password, err := readPassword(cmd, "Admin password: ")
	if err != nil {
		return err
	}
	if err := authenticator.Login(username, password); err != nil {
		a.logger.Warn("admin login failed", zap.String("username", username))
		return err
	}
	a.logger.Info("admin login", zap.String("username", username))
	return nil
}

func readPassword(cmd *cobra.Command, prompt string) (string, error) {
	if cmd.Flags().Changed("password") {
		return adminPassword, nil
	}
	if v, ok := os.LookupEnv(passwordEnv); ok {
		return v, nil
	}
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		logErrf(cmd.ErrOrStderr(), "%s", prompt)
		raw, err := term.ReadPassword(int(f.Fd()))
		logErrf(cmd.ErrOrStderr(), "\n")
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(raw), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("admin password required (use --password, $%s or a terminal prompt)", passwordEnv)
	}
	return line, nil
}

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Admin account helpers",
	}
	hashCmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash for the admin.password-hash setting",
		Args:  cobra.NoArgs,
		RunE:  runHashPasswordCmd,
	}
	hashCmd.Flags().StringVar(&adminPassword, "password", "", "password to hash (default: $"+passwordEnv+" or prompt)")
	cmd.AddCommand(hashCmd)
	return cmd
}

func runHashPasswordCmd(cmd *cobra.Command, _ []string) error {
	password, err := readPassword(cmd, "New admin password: ")
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), hash); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
