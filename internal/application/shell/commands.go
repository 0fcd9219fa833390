package shell

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/penwyp/go-fullsnack/internal/application/app"
	"github.com/penwyp/go-fullsnack/internal/core/model"
	"github.com/penwyp/go-fullsnack/internal/presentation/formatter"
	"github.com/penwyp/go-fullsnack/internal/presentation/interaction"
	"github.com/penwyp/go-fullsnack/internal/presentation/view"
	"github.com/penwyp/go-fullsnack/internal/util"
)

// errUsage makes Exec print the command usage
var errUsage = errors.New("usage")

type command struct {
	name    string
	aliases []string
	usage   string
	help    string
	run     func(ctx context.Context, args []string) error
}

func (s *Shell) registerCommands() {
	s.commands = []*command{
		{name: "help", aliases: []string{"?"}, usage: "help", help: "list commands", run: s.cmdHelp},
		{name: "go", aliases: []string{"nav", "cd"}, usage: "go <path>", help: "open a page, e.g. go /dashboard/", run: s.cmdGo},
		{name: "log", aliases: []string{"today"}, usage: "log", help: "open today's food log", run: s.path(model.PathFoodLog)},
		{name: "dash", aliases: []string{"dashboard"}, usage: "dash", help: "open the weekly dashboard", run: s.path(model.PathDashboard)},
		{name: "day", usage: "day <YYYY-MM-DD>", help: "open one day", run: s.cmdDay},
		{name: "add", usage: "add <food description>", help: "look up a food and log it", run: s.cmdAdd},
		{name: "new", usage: "new <name> <calories> [protein] [carbs] [fat]", help: "log an entry by hand", run: s.cmdNew},
		{name: "update", aliases: []string{"edit"}, usage: "update <id> field=value...", help: "change name, calories, protein, carbs, fat or image", run: s.cmdUpdate},
		{name: "rm", aliases: []string{"delete"}, usage: "rm <id>", help: "delete an entry", run: s.cmdDelete},
		{name: "photos", usage: "photos <query>", help: "search photos", run: s.cmdPhotos},
		{name: "set-image", aliases: []string{"image"}, usage: "set-image <id> <query>", help: "attach a photo to an entry", run: s.cmdSetImage},
		{name: "expand", usage: "expand <week start>", help: "show the days of a week on the dashboard", run: s.cmdExpand},
		{name: "collapse", usage: "collapse <week start>", help: "hide the days of a week", run: s.cmdCollapse},
		{name: "sort", usage: "sort <time|calories|name>", help: "sort the entries on screen", run: s.cmdSort},
		{name: "login", usage: "login <email>", help: "sign in", run: s.cmdLogin},
		{name: "signup", usage: "signup <email> [first] [last]", help: "create an account", run: s.cmdSignup},
		{name: "logout", usage: "logout", help: "sign out", run: s.cmdLogout},
		{name: "whoami", usage: "whoami", help: "show the signed in user", run: s.cmdWhoami},
		{name: "show", aliases: []string{"refresh"}, usage: "show", help: "redraw the current page", run: s.cmdShow},
		{name: "quit", aliases: []string{"exit", "q"}, usage: "quit", help: "leave the shell", run: func(context.Context, []string) error { return errQuit }},
	}

	s.byName = make(map[string]*command)
	for _, cmd := range s.commands {
		s.byName[cmd.name] = cmd
		for _, alias := range cmd.aliases {
			s.byName[alias] = cmd
		}
	}
}

func (s *Shell) cmdHelp(context.Context, []string) error {
	width := 0
	for _, cmd := range s.commands {
		width = max(width, len(cmd.usage))
	}
	for _, cmd := range s.commands {
		fmt.Fprintf(s.out, "  %-*s  %s\n", width, cmd.usage, cmd.help)
	}
	return nil
}

func (s *Shell) path(p string) func(context.Context, []string) error {
	return func(ctx context.Context, args []string) error {
		if len(args) != 0 {
			return errUsage
		}
		return s.app.Router().Navigate(ctx, p)
	}
}

func (s *Shell) cmdGo(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	return s.app.Router().Navigate(ctx, args[0])
}

func (s *Shell) cmdDay(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	if _, err := model.ParseDate(args[0]); err != nil {
		return fmt.Errorf("invalid date %q", args[0])
	}
	return s.app.Router().Navigate(ctx, model.PathDayPrefix+args[0]+"/")
}

func (s *Shell) cmdAdd(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	entry, err := s.app.AddFood(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Logged #%d %s, %s\n", entry.ID, entry.FoodName, util.FormatCalories(entry.Calories))
	return nil
}

func (s *Shell) cmdNew(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	entry, err := app.ParseEntry(args[0], args[1:])
	if err != nil {
		return err
	}
	created, err := s.app.Gateway().Create(ctx, entry)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Logged #%d %s, %s\n", created.ID, created.FoodName, util.FormatCalories(created.Calories))
	return nil
}

func (s *Shell) cmdUpdate(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	id, err := app.ParseID(args[0])
	if err != nil {
		return err
	}
	patch, err := app.ParsePatch(args[1:])
	if err != nil {
		return err
	}
	updated, err := s.app.Gateway().Update(ctx, id, patch)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Updated #%d %s, %s\n", updated.ID, updated.FoodName, util.FormatCalories(updated.Calories))
	return nil
}

func (s *Shell) cmdDelete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	id, err := app.ParseID(args[0])
	if err != nil {
		return err
	}
	if err := s.app.Gateway().Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Deleted #%d\n", id)
	return nil
}

func (s *Shell) cmdPhotos(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	photos, err := s.app.SearchPhotos(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	return formatter.NewTableFormatter(formatter.TerminalWidth()).Format(s.out, formatter.PhotosTable(photos))
}

func (s *Shell) cmdSetImage(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	id, err := app.ParseID(args[0])
	if err != nil {
		return err
	}
	result, err := s.app.Gateway().SetImage(ctx, id, strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	if line := formatter.CreditLine(result.Credit); line != "" {
		fmt.Fprintf(s.out, "Image set on #%d. %s\n", id, line)
	} else {
		fmt.Fprintf(s.out, "Image set on #%d\n", id)
	}
	return nil
}

func (s *Shell) dashboard() (*view.Dashboard, error) {
	_, current := s.app.Router().Current()
	dash, ok := current.(*view.Dashboard)
	if !ok {
		return nil, errors.New("open the dashboard first")
	}
	return dash, nil
}

func (s *Shell) cmdExpand(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	dash, err := s.dashboard()
	if err != nil {
		return err
	}
	return dash.Expand(ctx, args[0])
}

func (s *Shell) cmdCollapse(_ context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	dash, err := s.dashboard()
	if err != nil {
		return err
	}
	dash.Collapse(args[0])
	return nil
}

type sortable interface {
	SetSort(field interaction.SortField)
}

func (s *Shell) cmdSort(_ context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	field, err := interaction.ParseSortField(args[0])
	if err != nil {
		return err
	}
	_, current := s.app.Router().Current()
	target, ok := current.(sortable)
	if !ok {
		return errors.New("nothing to sort on this page")
	}
	target.SetSort(field)
	return nil
}

func (s *Shell) cmdLogin(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	password, err := s.password("Password: ")
	if err != nil {
		return err
	}
	user, err := s.app.Login(ctx, args[0], password)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Signed in as %s\n", user.Email)
	return nil
}

func (s *Shell) cmdSignup(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 3 {
		return errUsage
	}
	creds := model.Credentials{Email: args[0]}
	if len(args) > 1 {
		creds.FirstName = args[1]
	}
	if len(args) > 2 {
		creds.LastName = args[2]
	}

	password, err := s.password("Password: ")
	if err != nil {
		return err
	}
	creds.Password = password
	user, err := s.app.Signup(ctx, creds)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Welcome, %s\n", user.DisplayName())
	return nil
}

func (s *Shell) cmdLogout(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return errUsage
	}
	if !s.app.Gate().IsAuthenticated() {
		fmt.Fprintln(s.out, "Not signed in")
		return nil
	}
	if err := s.app.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Signed out")
	return nil
}

func (s *Shell) cmdWhoami(context.Context, []string) error {
	if !s.app.Gate().IsAuthenticated() {
		fmt.Fprintln(s.out, "Not signed in")
		return nil
	}
	fmt.Fprintln(s.out, s.app.Gate().User())
	return nil
}

func (s *Shell) cmdShow(context.Context, []string) error {
	s.screen.Reset()
	return nil
}
