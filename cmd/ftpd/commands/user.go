package commands

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/marmos91/ftpd/internal/cli/output"
	"github.com/marmos91/ftpd/internal/cli/timeutil"
	"github.com/marmos91/ftpd/pkg/config"
	"github.com/marmos91/ftpd/pkg/identity"
)

var (
	userAddHome  string
	userAddPerms string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users (add, remove, list, passwd, enable, disable)",
	Long: `Manage accounts in the YAML user store.

The store location comes from the users.file config key (default:
$XDG_CONFIG_HOME/ftpd/users.yaml). A running server picks up changes
automatically.

Examples:
  ftpd user add alice --home /srv/ftp/alice
  ftpd user add bob --perms list,download
  ftpd user passwd alice
  ftpd user disable bob
  ftpd user list`,
}

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Add a new user (prompts for password)",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserAdd,
}

var userRemoveCmd = &cobra.Command{
	Use:     "remove <username>",
	Aliases: []string{"delete"},
	Short:   "Remove a user",
	Args:    cobra.ExactArgs(1),
	RunE:    runUserRemove,
}

var userListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all users",
	Args:    cobra.NoArgs,
	RunE:    runUserList,
}

var userPasswdCmd = &cobra.Command{
	Use:     "passwd <username>",
	Aliases: []string{"password"},
	Short:   "Change a user's password",
	Args:    cobra.ExactArgs(1),
	RunE:    runUserPasswd,
}

var userEnableCmd = &cobra.Command{
	Use:   "enable <username>",
	Short: "Enable a user",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setUserEnabled(args[0], true) },
}

var userDisableCmd = &cobra.Command{
	Use:   "disable <username>",
	Short: "Disable a user without deleting it",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setUserEnabled(args[0], false) },
}

func init() {
	userAddCmd.Flags().StringVar(&userAddHome, "home", "", "Home directory (default: the server root directory)")
	userAddCmd.Flags().StringVar(&userAddPerms, "perms", "", "Comma-separated permissions (default: all)")

	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userRemoveCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userPasswdCmd)
	userCmd.AddCommand(userEnableCmd)
	userCmd.AddCommand(userDisableCmd)
}

// openUserStore opens the file-backed user store named by the config.
func openUserStore() (*identity.FileStore, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, err
	}
	if len(cfg.Users.Inline) > 0 {
		return nil, fmt.Errorf("users are configured inline in the config file; edit it directly")
	}

	path := cfg.Users.File
	if path == "" {
		path = config.GetDefaultUsersPath()
	}
	return identity.NewFileStore(path)
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	username := args[0]

	store, err := openUserStore()
	if err != nil {
		return err
	}
	defer store.Close()

	perms, err := parsePermissions(userAddPerms)
	if err != nil {
		return err
	}

	password, err := promptNewPassword()
	if err != nil {
		return err
	}
	hash, err := identity.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := &identity.User{
		Username:     username,
		PasswordHash: hash,
		HomeDir:      userAddHome,
		Permissions:  perms,
		Enabled:      true,
	}
	if err := store.AddUser(user); err != nil {
		return err
	}

	fmt.Printf("✓ User %q created\n", username)
	return nil
}

func runUserRemove(cmd *cobra.Command, args []string) error {
	store, err := openUserStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.RemoveUser(args[0]); err != nil {
		return err
	}
	fmt.Printf("✓ User %q removed\n", args[0])
	return nil
}

func runUserList(cmd *cobra.Command, args []string) error {
	store, err := openUserStore()
	if err != nil {
		return err
	}
	defer store.Close()

	users, err := store.ListUsers()
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Println("No users configured")
		return nil
	}

	table := output.NewTableData("USERNAME", "ENABLED", "HOME", "PERMISSIONS", "LAST LOGIN")
	for _, u := range users {
		enabled := "yes"
		if !u.Enabled {
			enabled = "no"
		}
		home := u.HomeDir
		if home == "" {
			home = "(server root)"
		}
		perms := "all"
		if len(u.Permissions) > 0 {
			parts := make([]string, len(u.Permissions))
			for i, p := range u.Permissions {
				parts[i] = string(p)
			}
			perms = strings.Join(parts, ",")
		}
		lastLogin := "-"
		if !u.LastLogin.IsZero() {
			lastLogin = timeutil.FormatTime(u.LastLogin.Format("2006-01-02T15:04:05Z07:00"))
		}
		table.AddRow(u.Username, enabled, home, perms, lastLogin)
	}
	return output.PrintTable(os.Stdout, table)
}

func runUserPasswd(cmd *cobra.Command, args []string) error {
	store, err := openUserStore()
	if err != nil {
		return err
	}
	defer store.Close()

	password, err := promptNewPassword()
	if err != nil {
		return err
	}
	if err := store.SetPassword(args[0], password); err != nil {
		return err
	}
	fmt.Printf("✓ Password updated for %q\n", args[0])
	return nil
}

func setUserEnabled(username string, enabled bool) error {
	store, err := openUserStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SetEnabled(username, enabled); err != nil {
		return err
	}
	state := "enabled"
	if !enabled {
		state = "disabled"
	}
	fmt.Printf("✓ User %q %s\n", username, state)
	return nil
}

func parsePermissions(s string) ([]identity.Permission, error) {
	if s == "" || strings.EqualFold(s, "all") {
		return nil, nil
	}
	var perms []identity.Permission
	for _, part := range strings.Split(s, ",") {
		p := identity.Permission(strings.TrimSpace(strings.ToLower(part)))
		if !p.IsValid() {
			return nil, fmt.Errorf("unknown permission %q (valid: download, upload, append, delete, rename, mkdir, rmdir, list)", part)
		}
		perms = append(perms, p)
	}
	return perms, nil
}

// promptNewPassword reads a password twice with echo disabled.
func promptNewPassword() (string, error) {
	password, err := promptPassword("Password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	confirm, err := promptPassword("Confirm password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password confirmation: %w", err)
	}
	if password != confirm {
		return "", fmt.Errorf("passwords do not match")
	}
	if err := identity.ValidatePassword(password); err != nil {
		return "", err
	}
	return password, nil
}

func promptPassword(label string) (string, error) {
	fmt.Print(label)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(password), nil
}
