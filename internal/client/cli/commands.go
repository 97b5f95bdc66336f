package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/dmitrijs2005/secdrive/internal/client/client"
)

var errUsage = errors.New("usage")

// report prints err for the user and passes it through.
func (a *App) report(err error) error {
	if err != nil {
		fmt.Fprintln(a.out, "Error:", err)
	}
	return err
}

func (a *App) Use(_ context.Context, args []string) error {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "Usage: use <user_id>")
		return errUsage
	}
	a.setUser(args[0])
	fmt.Fprintln(a.out, "Acting as", args[0])
	return nil
}

func (a *App) Register(ctx context.Context) error {
	userID := a.userID
	if userID == "" {
		var err error
		if userID, err = GetSimpleText(a.reader, "User id", a.out); err != nil {
			return a.report(err)
		}
	}

	p := client.Profile{UserID: userID}
	for _, f := range []struct {
		prompt string
		dst    *string
	}{
		{"Email", &p.Email},
		{"First name", &p.FirstName},
		{"Last name", &p.LastName},
	} {
		v, err := GetSimpleText(a.reader, f.prompt, a.out)
		if err != nil {
			return a.report(err)
		}
		*f.dst = v
	}

	if err := a.api.Register(ctx, p); err != nil {
		return a.report(err)
	}
	a.setUser(userID)
	fmt.Fprintln(a.out, "Registered", userID)
	return nil
}

func (a *App) Profile(ctx context.Context) error {
	p, err := a.api.GetProfile(ctx, a.userID)
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.out, "%s <%s> %s %s\n", p.UserID, p.Email, p.FirstName, p.LastName)
	return nil
}

func (a *App) UpdateProfile(ctx context.Context) error {
	upd := client.ProfileUpdate{UserID: a.userID}
	var err error
	if upd.Email, err = GetOptionalText(a.reader, "Email", a.out); err != nil {
		return a.report(err)
	}
	if upd.FirstName, err = GetOptionalText(a.reader, "First name", a.out); err != nil {
		return a.report(err)
	}
	if upd.LastName, err = GetOptionalText(a.reader, "Last name", a.out); err != nil {
		return a.report(err)
	}
	if upd.Email == nil && upd.FirstName == nil && upd.LastName == nil {
		fmt.Fprintln(a.out, "Nothing to update")
		return nil
	}

	if err := a.api.UpdateProfile(ctx, upd); err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.out, "Profile updated")
	return nil
}

func (a *App) List(ctx context.Context) error {
	files, err := a.files.List(ctx)
	if err != nil {
		return a.report(err)
	}
	if len(files) == 0 {
		fmt.Fprintln(a.out, "No files")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSIZE\tMODIFIED")
	for _, f := range files {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.ID, f.Name, f.Size, f.Modified)
	}
	return tw.Flush()
}

func (a *App) Upload(ctx context.Context, args []string) error {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "Usage: upload <path>")
		return errUsage
	}
	id, err := a.files.Upload(ctx, args[0])
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.out, "Uploaded", args[0], "as", id)
	return nil
}

func (a *App) Download(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		fmt.Fprintln(a.out, "Usage: download <id> [dir]")
		return errUsage
	}
	dir := a.config.DownloadDir
	if len(args) == 2 {
		dir = args[1]
	}
	path, err := a.files.Download(ctx, args[0], dir)
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.out, "Saved", path)
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		fmt.Fprintln(a.out, "Usage: rm <id>")
		return errUsage
	}
	if err := a.files.Delete(ctx, args[0]); err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.out, "Deleted", args[0])
	return nil
}
