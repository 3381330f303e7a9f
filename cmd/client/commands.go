package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/flurbudurbur/degustation/internal/domain"

	"github.com/pkg/errors"
)

func (a *app) room(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("room: expected create, join, show or leave")
	}

	switch args[0] {
	case "create":
		room, err := a.client.CreateRoom()
		if err != nil {
			return err
		}
		if !a.client.PushNow(ctx) {
			fmt.Fprintln(a.out, "room created, but local state could not be pushed yet")
		}
		fmt.Fprintln(a.out, room)

	case "join":
		if len(args) < 2 {
			return errors.New("room join: expected a code")
		}
		room, pulled, err := a.client.JoinRoom(ctx, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		if !pulled {
			fmt.Fprintf(a.out, "joined %s, but the room could not be pulled\n", room)
			return nil
		}
		fmt.Fprintf(a.out, "joined %s\n", room)

	case "show":
		room, ok := a.client.Room()
		if !ok {
			fmt.Fprintln(a.out, "not synced")
			return nil
		}
		fmt.Fprintln(a.out, room)

	case "leave":
		return a.client.LeaveRoom()

	default:
		return errors.Errorf("room: unknown subcommand %q", args[0])
	}

	return nil
}

func (a *app) pull(ctx context.Context) error {
	if _, ok := a.client.Room(); !ok {
		return domain.ErrNotSynced
	}
	if !a.client.Pull(ctx) {
		return errors.New("pull failed, local state unchanged")
	}
	return nil
}

func (a *app) push(ctx context.Context) error {
	if _, ok := a.client.Room(); !ok {
		return domain.ErrNotSynced
	}
	a.client.PushNow(ctx)
	return nil
}

func (a *app) done(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("done: expected a restaurant id")
	}
	id, err := a.restaurantID(args[0])
	if err != nil {
		return err
	}

	a.refresh(ctx)

	visited, err := a.state.ToggleDone(id)
	if err != nil {
		return err
	}
	a.client.Flush(ctx)

	fmt.Fprintf(a.out, "%d visited: %t\n", id, visited)
	return nil
}

func (a *app) rank(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.New("rank: expected a user and restaurant ids")
	}
	user, err := domain.ParseUserKey(args[0])
	if err != nil {
		return err
	}

	ids := make([]int, 0, len(args)-1)
	for _, arg := range args[1:] {
		for _, field := range strings.Split(arg, ",") {
			if field == "" {
				continue
			}
			id, err := a.restaurantID(field)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
	}

	a.refresh(ctx)

	if err := a.state.SetRanking(user, ids); err != nil {
		return err
	}
	a.client.Flush(ctx)
	return nil
}

func (a *app) validate(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("validate: expected a user and optionally on or off")
	}
	user, err := domain.ParseUserKey(args[0])
	if err != nil {
		return err
	}

	validated := true
	if len(args) == 2 {
		switch args[1] {
		case "on", "true":
		case "off", "false":
			validated = false
		default:
			return errors.Errorf("validate: expected on or off, got %q", args[1])
		}
	}

	a.refresh(ctx)

	if err := a.state.SetValidated(user, validated); err != nil {
		return err
	}
	a.client.Flush(ctx)
	return nil
}

func (a *app) note(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return errors.New("note: expected a restaurant id, a user and a rating")
	}
	id, err := a.restaurantID(args[0])
	if err != nil {
		return err
	}
	user, err := domain.ParseUserKey(args[1])
	if err != nil {
		return err
	}

	var rating *int
	if args[2] != "-" {
		n, err := strconv.Atoi(args[2])
		if err != nil {
			return domain.ErrInvalidNote
		}
		rating = &n
	}

	var comment *string
	if len(args) > 3 {
		c := strings.Join(args[3:], " ")
		comment = &c
	}

	a.refresh(ctx)

	if err := a.state.SetNote(id, user, rating, comment); err != nil {
		return err
	}
	a.client.Flush(ctx)
	return nil
}

func (a *app) list(args []string) error {
	if a.catalog == nil {
		return errors.New("list: no catalog configured, set DEGUSTATION_CATALOG")
	}

	var ranking []int
	if len(args) > 0 {
		user, err := domain.ParseUserKey(args[0])
		if err != nil {
			return err
		}
		ranking = a.state.Ranking(user)
	}

	notes := a.state.Notes()
	for i, r := range a.catalog.OrderedByRanking(ranking) {
		mark := " "
		if a.state.IsDone(r.ID) {
			mark = "x"
		}
		fmt.Fprintf(a.out, "%3d. [%s] %4d  %s (%s)%s\n", i+1, mark, r.ID, r.Nom, r.Quartier, formatNotes(notes[strconv.Itoa(r.ID)]))
	}
	return nil
}

// refresh pulls the room before a local change so the push that follows
// carries the other device's latest state. Without a room it does nothing.
func (a *app) refresh(ctx context.Context) {
	if _, ok := a.client.Room(); !ok {
		return
	}
	if !a.client.Pull(ctx) {
		fmt.Fprintln(os.Stderr, "warning: could not pull the room, pushing local state as is")
	}
}

// restaurantID parses id and, when a catalog is loaded, checks it exists.
func (a *app) restaurantID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, errors.Errorf("invalid restaurant id %q", s)
	}
	if a.catalog != nil {
		if _, ok := a.catalog.ByID(id); !ok {
			return 0, errors.Errorf("unknown restaurant %d", id)
		}
	}
	return id, nil
}

func formatNotes(n domain.RestaurantNote) string {
	var parts []string
	for _, user := range domain.Users {
		note := n.For(user)
		if note == nil || note.Note == nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %d/5", user, *note.Note))
	}
	if len(parts) == 0 {
		return ""
	}
	return "  " + strings.Join(parts, ", ")
}
