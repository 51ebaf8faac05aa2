package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"syscall"

	"golang.org/x/term"

	"github.com/schoolrecords/sf10/core/user"
	"github.com/schoolrecords/sf10/storage/database"
)

var (
	readPasswordFunc  = term.ReadPassword      // mockable
	runMigrationsFunc = database.RunMigrations // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db     *sql.DB
	usrSvc *user.Service
	logger *log.Logger
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose command (up, up-by-one, up-to, down, down-to, redo, reset, status, version, create, fix)")
	fmt.Println("  adduser -username USERNAME -email EMAIL [-name NAME] [-admin] [-grade-level LEVEL -section SECTION] - add an active user")
	fmt.Println("  resetpassword -username USERNAME|EMAIL - reset user's password")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserUname := addUserCmd.String("username", "", "The user's username.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserName := addUserCmd.String("name", "", "The user's full name. Defaults to the username.")
	addUserIsAdmin := addUserCmd.Bool("admin", false, "Grant admin rights. Other users are teachers.")
	addUserGradeLevel := addUserCmd.String("grade-level", "", "The grade level of a teacher's advisory class, eg. \"Grade 1\".")
	addUserSection := addUserCmd.String("section", "", "The section of a teacher's advisory class.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" && *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		name := *addUserName
		if name == "" {
			name = *addUserUname
		}
		return cli.addUser(user.NewUser{
			Name:            name,
			Username:        *addUserUname,
			Email:           *addUserEmail,
			Password:        pwd,
			PasswordConfirm: pwd,
			GradeLevel:      *addUserGradeLevel,
			Section:         *addUserSection,
		}, *addUserIsAdmin)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.usrSvc.ResetPassword(context.Background(), *resetPasswordUname, pwd)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	return string(pwd), err
}

func (cli *commandLine) migrate(args []string) error {
	return runMigrationsFunc(cli.db, cli.logger, args[0], args[1:]...)
}

// addUser creates an active admin, or an active teacher.
func (cli *commandLine) addUser(nu user.NewUser, isAdmin bool) error {
	if isAdmin {
		nu.Roles = []string{user.RoleAdmin}
		nu.GradeLevel, nu.Section = "", ""
	} else {
		nu.Roles = []string{user.RoleTeacher}
	}
	usr, err := cli.usrSvc.Create(context.Background(), nu)
	if err != nil {
		return err
	}
	cli.logger.Printf("user %q created", usr.Name)
	return nil
}
