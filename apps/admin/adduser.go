package main

import (
	"context"

	"github.com/roadmasterhq/roadmaster/core"
	"github.com/roadmasterhq/roadmaster/core/user"
)

// addUser updates or creates an active user.User with the given roles.
func (cli *commandLine) addUser(uname, email, pwd string, roles []string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUserByUsernameOrEmail(ctx, uname)
	if err == user.ErrNotFound {
		usr, err = cli.usrRepo.GetUserByEmail(ctx, email)
	}
	if err != nil && err != user.ErrNotFound {
		return err
	}

	isActive := true
	if usr.ID == "" {
		usr = user.User{
			Username: uname,
			Email:    email,
			Roles:    roles,
			IsActive: isActive,
		}
		if err := usr.SetPassword(pwd); err != nil {
			return err
		}
		_, err = cli.usrRepo.CreateUser(ctx, usr)
		return err
	}

	usr.Roles = roles
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	_, err = cli.usrRepo.UpdateUser(ctx, usr, &isActive)
	return err
}
