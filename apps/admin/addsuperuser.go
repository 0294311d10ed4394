package main

import (
	"context"
	"time"

	"github.com/jckckids/backend/core"
	"github.com/jckckids/backend/core/user"
)

// addSuperUser promotes an existing user to admin or creates a new one.
func (cli *commandLine) addSuperUser(email, phone, fname, lname, pwd string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)
	phone = core.CleanString(phone)

	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		now := time.Now().UTC()
		usr = user.User{
			FirstName:   fname,
			LastName:    lname,
			Email:       email,
			PhoneNumber: phone,
			CreatedAt:   now,
		}
	}
	usr.Role = user.RoleAdmin
	usr.IsActive = true
	usr.UpdatedAt = time.Now().UTC()
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	if usr.ID == "" {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.UpdateUser(ctx, usr, &usr.IsActive)
	}
	return err
}
