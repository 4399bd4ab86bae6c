package service

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"blogfeed/app/config"
	"blogfeed/app/forms"
	"blogfeed/app/media"
	"blogfeed/app/repositories"
	"blogfeed/app/services"

	log "github.com/sirupsen/logrus"
)

// Version is stamped at build time with -ldflags "-X blogfeed/service.Version=...".
var Version = "dev"

// HandleCommand runs a blogfeed subcommand and returns an exit code.
func HandleCommand(args []string) int {
	if len(args) < 1 {
		printHelp()
		osExit(1)
		return 1
	}

	cmd := args[0]
	switch cmd {
	case "help", "-h", "--help":
		printHelp()
		return 0
	case "version":
		fmt.Fprintf(stdout, "blogfeed %s\n", Version)
		return 0
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(stdout, "Invalid configuration: %v\n", err)
		return 1
	}
	log.SetLevel(cfg.LogLevel)
	ctx := context.Background()

	switch cmd {
	case "serve":
		if err := RunAppServer(cfg); err != nil {
			log.WithError(err).Error("server stopped")
			return 1
		}
		return 0
	case "init":
		return initDb(ctx, cfg)
	case "clean":
		return clean(cfg)
	case "backup":
		dir := "data/backups"
		if len(args) > 1 {
			dir = args[1]
		}
		return backup(cfg, dir)
	case "restore":
		if len(args) < 2 {
			fmt.Fprintln(stdout, "Error: backup file path required for restore")
			return 1
		}
		return restore(cfg, args[1])
	case "user":
		return withStore(ctx, cfg, func(store *repositories.Store) int {
			return userCommand(ctx, store, cfg, args[1:])
		})
	case "group":
		return withStore(ctx, cfg, func(store *repositories.Store) int {
			return groupCommand(ctx, store, args[1:])
		})
	default:
		fmt.Fprintf(stdout, "Unknown command: %s\n\n", cmd)
		printHelp()
		osExit(1)
		return 1
	}
}

func printHelp() {
	helpText := `Usage: blogfeed <command> [arguments]

Commands:
  serve                                 Run the blog server
  init                                  Initialize an empty database
  clean                                 Delete the Badger database
  backup [dir]                          Back up the Badger database (default data/backups)
  restore <file>                        Restore the Badger database from a backup
  user add [-email e] [-first f] [-last l] <username> <password>
                                        Create an account
  user list                             List accounts
  user delete <username>                Delete an account with its posts, comments and follows
  group add <slug> <title> [description] Create a group
  group list                            List groups
  group delete <slug>                   Delete a group; its posts are kept
  version                               Print the version
  help                                  Display this help message

Configuration is read from BLOGFEED_* environment variables.
`
	fmt.Fprintln(stdout, helpText)
}

func withStore(ctx context.Context, cfg *config.Config, run func(*repositories.Store) int) int {
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stdout, "Failed to open database: %v\n", err)
		return 1
	}
	defer closeStore()
	return run(store)
}

func requireBadger(cfg *config.Config, action string) bool {
	if cfg.Store != config.StoreBadger {
		fmt.Fprintf(stdout, "%s is only supported for the badger store; use the database's own tools for %s\n", action, cfg.Store)
		return false
	}
	return true
}

// initDb creates the Badger directory or the Postgres schema.
func initDb(ctx context.Context, cfg *config.Config) int {
	if cfg.Store == config.StoreBadger {
		if _, err := os.Stat(cfg.DBPath); err == nil {
			fmt.Fprintln(stdout, "Database already exists. Use 'clean' first if you want to reinitialize.")
			return 0
		}
	}
	return withStore(ctx, cfg, func(*repositories.Store) int {
		fmt.Fprintln(stdout, "Database initialized successfully")
		return 0
	})
}

// clean removes the Badger database after confirmation.
func clean(cfg *config.Config) int {
	if !requireBadger(cfg, "clean") {
		return 1
	}
	if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
		fmt.Fprintln(stdout, "Database is already clean (does not exist)")
		return 0
	}
	if !confirm("Are you sure you want to clean the database? This cannot be undone.") {
		fmt.Fprintln(stdout, "Operation cancelled")
		return 1
	}
	if err := os.RemoveAll(cfg.DBPath); err != nil {
		fmt.Fprintf(stdout, "Failed to clean database: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, "Database cleaned successfully")
	return 0
}

// backup writes a full Badger backup into dir.
func backup(cfg *config.Config, dir string) int {
	if !requireBadger(cfg, "backup") {
		return 1
	}
	if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
		fmt.Fprintln(stdout, "No database exists to backup")
		return 1
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		fmt.Fprintf(stdout, "Failed to create backup directory: %v\n", err)
		return 1
	}

	db, err := repositories.OpenBadger(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(stdout, "Failed to open database: %v\n", err)
		return 1
	}
	defer db.Close()

	backupFile := filepath.Join(dir, fmt.Sprintf("backup_%d.bak", time.Now().UnixNano()))
	f, err := os.Create(backupFile)
	if err != nil {
		fmt.Fprintf(stdout, "Failed to create backup file: %v\n", err)
		return 1
	}
	defer f.Close()

	if _, err := db.Backup(f, 0); err != nil {
		fmt.Fprintf(stdout, "Failed to backup database: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Database backed up successfully to %s\n", backupFile)
	return 0
}

// restore replaces the Badger database with the contents of backupFile.
func restore(cfg *config.Config, backupFile string) int {
	if !requireBadger(cfg, "restore") {
		return 1
	}
	fi, err := os.Stat(backupFile)
	if os.IsNotExist(err) {
		fmt.Fprintf(stdout, "Backup file does not exist: %s\n", backupFile)
		return 1
	}
	if err != nil {
		fmt.Fprintf(stdout, "Failed to stat backup file: %v\n", err)
		return 1
	}
	if fi.Size() == 0 {
		fmt.Fprintf(stdout, "Backup file is empty: %s\n", backupFile)
		return 1
	}

	if _, err := os.Stat(cfg.DBPath); err == nil {
		if !confirm("Existing database found. Do you want to replace it?") {
			fmt.Fprintln(stdout, "Operation cancelled")
			return 1
		}
		if err := os.RemoveAll(cfg.DBPath); err != nil {
			fmt.Fprintf(stdout, "Failed to remove existing database: %v\n", err)
			return 1
		}
	}
	if err := os.MkdirAll(cfg.DBPath, 0755); err != nil {
		fmt.Fprintf(stdout, "Failed to create database directory: %v\n", err)
		return 1
	}

	db, err := repositories.OpenBadger(cfg.DBPath)
	if err != nil {
		fmt.Fprintf(stdout, "Failed to open database: %v\n", err)
		return 1
	}
	defer db.Close()

	f, err := os.Open(backupFile)
	if err != nil {
		fmt.Fprintf(stdout, "Failed to open backup file: %v\n", err)
		return 1
	}
	defer f.Close()

	if err := db.Load(f, 256); err != nil {
		fmt.Fprintf(stdout, "Failed to restore database: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, "Database restored successfully")
	return 0
}

func userCommand(ctx context.Context, store *repositories.Store, cfg *config.Config, args []string) int {
	users := services.NewUserService(store, media.NewStore(cfg.MediaRoot, cfg.MaxUploadSize), cfg.SessionTTL)
	if len(args) < 1 {
		fmt.Fprintln(stdout, "Usage: blogfeed user add|list|delete")
		return 1
	}

	switch args[0] {
	case "add":
		flags := flag.NewFlagSet("user add", flag.ContinueOnError)
		flags.SetOutput(stdout)
		email := flags.String("email", "", "email address")
		first := flags.String("first", "", "first name")
		last := flags.String("last", "", "last name")
		if err := flags.Parse(args[1:]); err != nil {
			return 1
		}
		if flags.NArg() != 2 {
			fmt.Fprintln(stdout, "Usage: blogfeed user add [-email e] [-first f] [-last l] <username> <password>")
			return 1
		}
		password := flags.Arg(1)
		user, err := users.Signup(ctx, &forms.SignupForm{
			Username:        flags.Arg(0),
			FirstName:       *first,
			LastName:        *last,
			Email:           *email,
			Password:        password,
			PasswordConfirm: password,
		})
		if err != nil {
			fmt.Fprintf(stdout, "Failed to create user: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "User %s created with id %d\n", user.Username, user.ID)
		return 0

	case "list":
		list, err := users.List(ctx)
		if err != nil {
			fmt.Fprintf(stdout, "Failed to list users: %v\n", err)
			return 1
		}
		w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tUSERNAME\tNAME\tEMAIL")
		for _, u := range list {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", u.ID, u.Username, u.FullName(), u.Email)
		}
		w.Flush()
		return 0

	case "delete":
		if len(args) != 2 {
			fmt.Fprintln(stdout, "Usage: blogfeed user delete <username>")
			return 1
		}
		if err := users.Delete(ctx, args[1]); err != nil {
			fmt.Fprintf(stdout, "Failed to delete user: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "User %s deleted\n", args[1])
		return 0

	default:
		fmt.Fprintf(stdout, "Unknown user command: %s\n", args[0])
		return 1
	}
}

func groupCommand(ctx context.Context, store *repositories.Store, args []string) int {
	groups := services.NewGroupService(store.Groups)
	if len(args) < 1 {
		fmt.Fprintln(stdout, "Usage: blogfeed group add|list|delete")
		return 1
	}

	switch args[0] {
	case "add":
		if len(args) < 3 {
			fmt.Fprintln(stdout, "Usage: blogfeed group add <slug> <title> [description]")
			return 1
		}
		group, err := groups.Create(ctx, args[2], args[1], strings.Join(args[3:], " "))
		if err != nil {
			fmt.Fprintf(stdout, "Failed to create group: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "Group %s created with id %d\n", group.Slug, group.ID)
		return 0

	case "list":
		list, err := groups.List(ctx)
		if err != nil {
			fmt.Fprintf(stdout, "Failed to list groups: %v\n", err)
			return 1
		}
		w := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSLUG\tTITLE")
		for _, g := range list {
			fmt.Fprintf(w, "%d\t%s\t%s\n", g.ID, g.Slug, g.Title)
		}
		w.Flush()
		return 0

	case "delete":
		if len(args) != 2 {
			fmt.Fprintln(stdout, "Usage: blogfeed group delete <slug>")
			return 1
		}
		if err := groups.Delete(ctx, args[1]); err != nil {
			fmt.Fprintf(stdout, "Failed to delete group: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "Group %s deleted\n", args[1])
		return 0

	default:
		fmt.Fprintf(stdout, "Unknown group command: %s\n", args[0])
		return 1
	}
}
