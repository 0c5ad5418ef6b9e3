package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-admin-client/events"
	"github.com/jrsteele09/go-admin-client/internal/config"
	"github.com/jrsteele09/go-admin-client/internal/logging"
	"github.com/jrsteele09/go-admin-client/lifecycle"
	"github.com/jrsteele09/go-admin-client/resources"
	"github.com/jrsteele09/go-admin-client/session"
)

const usage = `usage: adminctl [flags] <command> [args]

commands:
  login -email <email> [-password <password>]
  logout
  whoami
  list <resource> [key=value ...]
  get <resource> <id>
  watch

flags:
`

func main() {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	baseURL := flag.String("base-url", "", "admin API base URL (default: BASE_URL env or the built-in URL)")
	quiet := flag.Bool("quiet", false, "do not print the banner")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	c := config.New()
	logger := logging.New(c)
	if !*quiet {
		displayAppname(c.GetAppName())
	}

	if err := run(c, logger, *baseURL, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(c config.Config, logger zerolog.Logger, baseURL string, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []session.Option{session.WithLogger(logger)}
	// Priority: flag > env > built-in
	if url := getConfig(baseURL, "BASE_URL"); url != "" {
		opts = append(opts, session.WithBaseURL(url))
	}
	s, err := session.New(ctx, c, opts...)
	if err != nil {
		return err
	}
	defer s.Close()

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return login(ctx, s, rest)
	case "logout":
		return s.Auth.Logout(ctx)
	case "whoami":
		return whoami(s)
	case "list":
		return list(ctx, s, rest)
	case "get":
		return get(ctx, s, rest)
	case "watch":
		return watch(ctx, s)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func login(ctx context.Context, s *session.Session, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", os.Getenv("ADMIN_EMAIL"), "account email (or ADMIN_EMAIL env)")
	password := fs.String("password", os.Getenv("ADMIN_PASSWORD"), "account password (or ADMIN_PASSWORD env)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	l, err := s.Auth.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Printf("logged in as %s (%s)\n", l.UserID, l.Role)
	return nil
}

func whoami(s *session.Session) error {
	id, err := s.Auth.Identity()
	if err != nil {
		return err
	}
	out := map[string]any{"userId": id.UserID, "role": id.Role}
	if claims, err := s.Auth.Claims(); err == nil {
		out["tokenExpires"] = claims.ExpiresAt
	}
	return printJSON(out)
}

func list(ctx context.Context, s *session.Session, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("list needs a resource name")
	}
	name, err := resourceName(args[0])
	if err != nil {
		return err
	}
	query := map[string]string{}
	for _, kv := range args[1:] {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("filter %q is not key=value", kv)
		}
		query[k] = v
	}

	items, err := session.Resource[map[string]any](s, name).List(ctx, query)
	if err != nil {
		return err
	}
	return printJSON(items)
}

func get(ctx context.Context, s *session.Session, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("get needs a resource name and an id")
	}
	name, err := resourceName(args[0])
	if err != nil {
		return err
	}
	item, err := session.Resource[map[string]any](s, name).Get(ctx, args[1])
	if err != nil {
		return err
	}
	return printJSON(item)
}

// watch keeps the session monitored until it ends or the process is interrupted. Input lines on
// stdin count as key presses.
func watch(ctx context.Context, s *session.Session) error {
	if !s.Store.Authenticated() {
		return fmt.Errorf("not logged in")
	}
	ended := make(chan events.LogoutEvent, 1)
	detach, err := s.OnLogout(func(e events.LogoutEvent) {
		select {
		case ended <- e:
		default:
		}
	})
	if err != nil {
		return err
	}
	defer detach()

	go func() {
		buf := make([]byte, 256)
		for {
			if _, err := os.Stdin.Read(buf); err != nil {
				return
			}
			s.Touch(lifecycle.KeyPress)
		}
	}()

	fmt.Println("watching session, press enter to register activity")
	select {
	case e := <-ended:
		fmt.Printf("session ended: %s\n", e.Reason)
	case <-ctx.Done():
	}
	return nil
}

func getConfig(flagValue, envVar string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(envVar)
}

func resourceName(name string) (resources.Name, error) {
	if !resources.Known(name) {
		return "", fmt.Errorf("unknown resource %q", name)
	}
	return resources.Name(name), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
