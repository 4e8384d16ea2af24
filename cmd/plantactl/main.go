package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"planta-mantenimiento/client/internal/assets"
	authclient "planta-mantenimiento/client/internal/auth/client"
	"planta-mantenimiento/client/internal/auth/repository"
	"planta-mantenimiento/client/internal/auth/service"
	"planta-mantenimiento/client/internal/config"
	"planta-mantenimiento/client/internal/permission"
	"planta-mantenimiento/client/internal/permission/engine"
	"planta-mantenimiento/client/internal/telemetry/otel"
	"planta-mantenimiento/client/internal/transport"
)

const usage = `usage: plantactl <command> [args]

commands:
  login <username>     authenticate and store the session
  logout               clear the stored session
  status               show session state and expiration
  whoami               show the authenticated user and permissions
  plantas              list plants
  areas <plantaID>     list areas of a plant
  equipos <areaID>     list equipment of an area
  sistemas <equipoID>  list subsystems of an equipment unit
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := newLogger(cfg)
	ctx := context.Background()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "plantactl", cfg.Env != "production")
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()
	emitter := otel.NewSessionEventEmitter(providers.LoggerProvider)

	sessionPath, err := cfg.SessionFilePath()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	httpClient := &http.Client{Timeout: cfg.HTTPTimeoutDuration()}
	repo := repository.NewFileRepository(sessionPath, logger)
	creds := authclient.New(cfg.APIBaseURL, httpClient, logger)
	manager, err := service.NewManager(repo, creds, logger, service.Options{
		ClockSkew:     cfg.ClockSkewDuration(),
		RequireExpiry: cfg.RequireExpiry,
	})
	if err != nil {
		log.Fatalf("session: %v", err)
	}

	api := transport.New(cfg.APIBaseURL, httpClient, manager, logger)
	app := &app{
		manager: manager,
		assets:  assets.NewClient(api),
		emitter: emitter,
	}
	if err := app.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		if errors.Is(err, service.ErrUnauthenticated) {
			fmt.Fprintln(os.Stderr, "session expired or missing; run `plantactl login <username>`")
			os.Exit(1)
		}
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

type app struct {
	manager *service.Manager
	assets  *assets.Client
	emitter otel.SessionEventEmitter
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return a.login(ctx, args)
	case "logout":
		if err := a.manager.Logout(); err != nil {
			return err
		}
		a.emitter.Emit(ctx, otel.SessionEvent{Type: "logout", At: time.Now()})
		fmt.Println("logged out")
		return nil
	case "status":
		return a.status()
	case "whoami":
		return a.whoami(ctx)
	case "plantas":
		plantas, err := a.assets.Plantas(ctx)
		if err != nil {
			return err
		}
		for _, p := range plantas {
			fmt.Printf("%d\t%s\n", p.ID, p.Nombre)
		}
		return nil
	case "areas":
		id, err := intArg(args, "plantaID")
		if err != nil {
			return err
		}
		areas, err := a.assets.Areas(ctx, id)
		if err != nil {
			return err
		}
		for _, area := range areas {
			fmt.Printf("%d\t%s\n", area.ID, area.Nombre)
		}
		return nil
	case "equipos":
		id, err := intArg(args, "areaID")
		if err != nil {
			return err
		}
		equipos, err := a.assets.Equipos(ctx, id)
		if err != nil {
			return err
		}
		for _, eq := range equipos {
			fmt.Printf("%d\t%s\n", eq.ID, eq.Nombre)
		}
		return nil
	case "sistemas":
		id, err := intArg(args, "equipoID")
		if err != nil {
			return err
		}
		sistemas, err := a.assets.Sistemas(ctx, id)
		if err != nil {
			return err
		}
		for _, s := range sistemas {
			fmt.Printf("%d\t%s\n", s.ID, s.Nombre)
		}
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
		return nil
	}
}

func (a *app) login(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.New("username required")
	}
	username := args[0]
	password := os.Getenv("PLANTA_PASSWORD")
	if password == "" {
		fmt.Fprint(os.Stderr, "password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimSpace(line)
	}

	user, err := a.manager.Login(ctx, username, password)
	if err != nil {
		if errors.Is(err, service.ErrAuthenticationFailed) {
			return fmt.Errorf("login rejected: %w", err)
		}
		return err
	}
	a.emitter.Emit(ctx, otel.SessionEvent{
		Type: "login", Username: user.Username, Role: string(user.Role), At: time.Now(),
	})
	fmt.Printf("logged in as %s (%s)\n", user.Username, user.Role)
	return nil
}

func (a *app) status() error {
	session := a.manager.CurrentSession()
	if session == nil {
		fmt.Println("no session")
		return nil
	}
	state := "expired"
	if a.manager.IsAuthenticated() {
		state = "authenticated"
	}
	fmt.Printf("%s as %s (%s)\n", state, session.User.Username, session.User.Role)
	if session.ExpiresAt != nil {
		fmt.Printf("expires at %s\n", session.ExpiresAt.Local().Format(time.RFC1123))
	} else {
		fmt.Println("no expiration")
	}
	if session.RefreshToken != "" {
		fmt.Println("refresh token available")
	}
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	user := a.manager.CurrentUser()
	if user == nil {
		return service.ErrUnauthenticated
	}
	evaluator, err := engine.NewOPAEvaluator()
	if err != nil {
		return err
	}
	perms, err := permission.Resolve(ctx, evaluator, user)
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s)\n", user.Username, user.Role)
	fmt.Printf("manage plants: %v\n", perms.CanManagePlantas())
	fmt.Printf("manage areas: %v\n", perms.CanManageAreas())
	fmt.Printf("manage equipment: %v\n", perms.CanManageEquipos())
	if len(user.Areas) > 0 {
		fmt.Printf("areas: %v\n", user.Areas)
	}
	if len(user.Equipos) > 0 {
		fmt.Printf("equipos: %v\n", user.Equipos)
	}
	return nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

func intArg(args []string, name string) (int, error) {
	if len(args) < 1 {
		return 0, fmt.Errorf("%s required", name)
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, args[0])
	}
	return id, nil
}
