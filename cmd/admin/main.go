// Command admin is an operator tool for the homedash auth service.
// It runs schema migrations and creates accounts without going through
// the public API.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/dmitrijs2005/homedash/internal/buildinfo"
	"github.com/dmitrijs2005/homedash/internal/common"
	"github.com/dmitrijs2005/homedash/internal/server/auth"
	"github.com/dmitrijs2005/homedash/internal/server/models"
	"github.com/dmitrijs2005/homedash/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/homedash/internal/server/services"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: admin <command> [flags]")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  migrate      -d <dsn>")
	fmt.Fprintln(os.Stderr, "  create-user  -d <dsn> -email <email> [-name <name>]")
}

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "migrate":
		err = runMigrate(os.Args[2:])
	case "create-user":
		err = runCreateUser(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func openDB(dsn string) (*sql.DB, repomanager.RepositoryManager, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}
	rm, err := repomanager.NewPostgresRepositoryManager()
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("repository init error: %w", err)
	}
	return db, rm, nil
}

func runMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	dsn := fs.String("d", "", "database DSN")
	fs.Parse(args)

	db, rm, err := openDB(*dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := rm.RunMigrations(context.Background(), db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	fmt.Println("migrations applied")
	return nil
}

func runCreateUser(args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ExitOnError)
	dsn := fs.String("d", "", "database DSN")
	email := fs.String("email", "", "email address")
	name := fs.String("name", "", "display name")
	fs.Parse(args)

	if *email == "" {
		return fmt.Errorf("email is required")
	}

	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	defer common.WipeByteArray(password)

	hasher := auth.NewPasswordHasher(bcrypt.DefaultCost)
	hash, err := hasher.Hash(string(password))
	if err != nil {
		return fmt.Errorf("hashing error: %w", err)
	}

	db, rm, err := openDB(*dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	user, err := rm.Users(db).Create(context.Background(), &models.User{
		Email:        services.NormalizeEmail(*email),
		PasswordHash: hash,
		Name:         *name,
	})
	if err != nil {
		return fmt.Errorf("error creating user: %w", err)
	}

	fmt.Printf("created user %s (%s)\n", user.ID, user.Email)
	return nil
}
