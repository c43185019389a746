// Command quizctl runs operator tasks against the quiz database.
//
//	quizctl migrate
//	quizctl create-admin [-email a@b.c] [-password secret] [-name Admin]
//	quizctl seed
//	quizctl events [-after 0] [-limit 100]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/config"
	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
	"github.com/mind-engage/mindengage-quiz/internal/users"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: quizctl <migrate|create-admin|seed|events> [flags]")
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	config.LoadDotEnv()
	cfg := config.FromEnv()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	// Open also applies the schema, which is all migrate needs.
	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	defer dbh.Close()

	us := users.NewStore(dbh)

	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "migrate":
		log.Printf("schema up to date (driver=%s)", cfg.DBDriver)

	case "create-admin":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		email := fs.String("email", cfg.AdminEmail, "admin email")
		password := fs.String("password", cfg.AdminPassword, "admin password (defaults to ADMIN_PASSWORD)")
		name := fs.String("name", "Administrator", "display name")
		_ = fs.Parse(args)
		if *password == "" {
			log.Fatal("create-admin: password required (-password or ADMIN_PASSWORD)")
		}
		u, err := us.Create(ctx, users.NewUser{Email: *email, Name: *name, Password: *password, Role: rbac.RoleAdmin})
		if errors.Is(err, users.ErrEmailTaken) {
			log.Printf("admin %s already exists", *email)
			return
		}
		if err != nil {
			log.Fatalf("create-admin: %v", err)
		}
		log.Printf("created admin id=%d email=%s", u.ID, u.Email)

	case "seed":
		rep, err := seed(ctx, us, quiz.NewSQLStore(dbh, cfg.DBDriver))
		if err != nil {
			log.Fatalf("seed: %v", err)
		}
		log.Printf("seeded users=%d quizzes=%d", rep.users, rep.quizzes)

	case "events":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		after := fs.Int64("after", 0, "only events with a greater sequence number")
		limit := fs.Int("limit", 100, "maximum events to print")
		_ = fs.Parse(args)
		evs, err := syncx.NewEventRepo(dbh).Since(ctx, *after, *limit)
		if err != nil {
			log.Fatalf("events: %v", err)
		}
		for _, e := range evs {
			fmt.Printf("%d\t%s\t%s\t%s\t%s\n", e.Seq, time.Unix(e.CreatedAt, 0).UTC().Format(time.RFC3339), e.Type, e.Key, e.DataJSON)
		}

	default:
		usage()
	}
}
