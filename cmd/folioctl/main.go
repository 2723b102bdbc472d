// folioctl - admin control tool for folio.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"folio/internal"
	"folio/internal/users"
)

const defaultShutdownTimeout = 30 * time.Second

// Command is one folioctl subcommand.
type Command interface {
	Name() string
	Description() string
	Execute(ctx context.Context, app *internal.Application, args []string) error
}

var commands = []Command{
	&CreateAdminCommand{},
	&ChangePasswordCommand{},
	&MigrateCommand{},
	&StatusCommand{},
	&HelpCommand{},
}

func main() {
	flag.Parse()

	cmdName := "help"
	args := flag.Args()
	if len(args) > 0 {
		cmdName = args[0]
		args = args[1:]
	}

	cmd := findCommand(cmdName)
	if cmd == nil {
		log.Printf("Unknown command: %s", cmdName)
		cmd = &HelpCommand{}
	}

	app, err := internal.NewApp()
	if err != nil {
		log.Fatalf("Failed to initialize app: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		if err := app.Shutdown(shutdownCtx); err != nil {
			log.Printf("Warning: cleanup error: %v", err)
		}
	}()

	if err := cmd.Execute(context.Background(), app, args); err != nil {
		log.Fatalf("Command failed: %v", err)
	}
}

func findCommand(name string) Command {
	for _, cmd := range commands {
		if cmd.Name() == name {
			return cmd
		}
	}
	return nil
}

// promptEmail reads an email from args or stdin.
func promptEmail(args []string) (string, error) {
	if len(args) >= 1 && args[0] != "" {
		return args[0], nil
	}
	fmt.Print("Admin email: ")
	input, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	email := strings.TrimSpace(input)
	if email == "" {
		return "", fmt.Errorf("email is required")
	}
	return email, nil
}

// promptPassword reads a password twice without echoing it.
func promptPassword() (string, error) {
	fmt.Print("New password: ")
	first, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	fmt.Print("Confirm password: ")
	second, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	if len(first) == 0 {
		return "", fmt.Errorf("password cannot be empty")
	}
	return string(first), nil
}

// CreateAdminCommand creates the dashboard admin account.
type CreateAdminCommand struct{}

func (c *CreateAdminCommand) Name() string        { return "create-admin" }
func (c *CreateAdminCommand) Description() string { return "Creates the admin account" }

func (c *CreateAdminCommand) Execute(_ context.Context, app *internal.Application, args []string) error {
	email, err := promptEmail(args)
	if err != nil {
		return err
	}

	password, err := promptPassword()
	if err != nil {
		return err
	}

	if err := app.DBManager.MigrateDatabase(); err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}

	db := app.DBManager.GetConnection()
	if err := users.CreateAdminUser(app.Logger, db, email, password); err != nil {
		if errors.Is(err, users.ErrUserExists) {
			log.Printf("User %s already exists", email)
			return nil
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	log.Printf("Admin account %s created", email)
	return nil
}

// ChangePasswordCommand updates the admin password.
type ChangePasswordCommand struct{}

func (c *ChangePasswordCommand) Name() string        { return "change-password" }
func (c *ChangePasswordCommand) Description() string { return "Changes an admin password" }

func (c *ChangePasswordCommand) Execute(_ context.Context, app *internal.Application, args []string) error {
	email, err := promptEmail(args)
	if err != nil {
		return err
	}

	db := app.DBManager.GetConnection()
	if _, err := users.FindByEmail(db, email); err != nil {
		return fmt.Errorf("user lookup failed: %w", err)
	}

	password, err := promptPassword()
	if err != nil {
		return err
	}

	if err := users.ChangePassword(app.Logger, db, email, password); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	fmt.Println("Password updated successfully")
	return nil
}

// MigrateCommand runs database migrations.
type MigrateCommand struct{}

func (c *MigrateCommand) Name() string        { return "migrate" }
func (c *MigrateCommand) Description() string { return "Runs database migrations" }

func (c *MigrateCommand) Execute(_ context.Context, app *internal.Application, _ []string) error {
	log.Println("Running database migrations...")
	return app.DBManager.MigrateDatabase()
}

// StatusCommand reports database connectivity and counts.
type StatusCommand struct{}

func (c *StatusCommand) Name() string        { return "status" }
func (c *StatusCommand) Description() string { return "Shows the current system status" }

func (c *StatusCommand) Execute(_ context.Context, app *internal.Application, _ []string) error {
	db := app.DBManager.GetConnection()

	var userCount int64
	if err := db.Model(&users.User{}).Count(&userCount).Error; err != nil {
		return fmt.Errorf("database error: %w", err)
	}

	var viewCount int64
	db.Table("page_views").Count(&viewCount)

	log.Println("System Status:")
	log.Println("- Database: connected")
	log.Printf("- Users: %d", userCount)
	log.Printf("- Page views: %d", viewCount)

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get SQL DB: %w", err)
	}
	log.Printf("- Open connections: %d", sqlDB.Stats().OpenConnections)

	return nil
}

// HelpCommand shows usage information.
type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Description() string { return "Shows usage information" }

func (c *HelpCommand) Execute(_ context.Context, _ *internal.Application, _ []string) error {
	fmt.Println("Usage: folioctl [command] [args...]")
	fmt.Println("Available commands:")
	for _, cmd := range commands {
		fmt.Printf("  %s: %s\n", cmd.Name(), cmd.Description())
	}
	return nil
}
