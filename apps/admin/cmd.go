package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/roadmasterhq/roadmaster/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db      *sql.DB
	usrRepo user.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  addadmin -username USERNAME -email EMAIL       - create or update an admin account")
	fmt.Println("  addinstructor -username USERNAME -email EMAIL  - create or update an instructor account")
	fmt.Println("  resetpassword -username USERNAME|EMAIL         - reset user's password")
	fmt.Println("  migrate COMMAND [ARGS]                         - run a goose migration command (up, down, status, ...)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addAdminCmd := flag.NewFlagSet("addadmin", flag.ExitOnError)
	addAdminUname := addAdminCmd.String("username", "", "The admin's username. The password will be prompted next.")
	addAdminEmail := addAdminCmd.String("email", "", "The admin's email.")

	addInstructorCmd := flag.NewFlagSet("addinstructor", flag.ExitOnError)
	addInstructorUname := addInstructorCmd.String("username", "", "The instructor's username. The password will be prompted next.")
	addInstructorEmail := addInstructorCmd.String("email", "", "The instructor's email.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	switch args[1] {
	case "addadmin":
		if err := addAdminCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addAdminUname == "" || *addAdminEmail == "" {
			addAdminCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword(addAdminCmd)
		if err != nil {
			return err
		}
		return cli.addUser(*addAdminUname, *addAdminEmail, pwd, user.AllRoles)

	case "addinstructor":
		if err := addInstructorCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addInstructorUname == "" || *addInstructorEmail == "" {
			addInstructorCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword(addInstructorCmd)
		if err != nil {
			return err
		}
		return cli.addUser(*addInstructorUname, *addInstructorEmail, pwd, user.InstructorRoles)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword(resetPasswordCmd)
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	default:
		cli.printUsage()
		return errHelp
	}
}

func promptPassword(cmd *flag.FlagSet) (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		cmd.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}
