package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/hideandseek/go/clients"
	"github.com/mcdev12/hideandseek/go/clients/game_api_client"
	"github.com/mcdev12/hideandseek/go/internal/actions"
	"github.com/mcdev12/hideandseek/go/internal/config"
	"github.com/mcdev12/hideandseek/go/internal/countdown"
	"github.com/mcdev12/hideandseek/go/internal/mapskey"
	"github.com/mcdev12/hideandseek/go/internal/navigation"
	"github.com/mcdev12/hideandseek/go/internal/session"
)

const usage = `usage: hideandseek <command> [flags]

commands:
  list                      list open games
  create [flags]            create a game at the current location and enter its lobby
  play <game-id>            join a game and follow it until it ends

while playing, type one of: start, catch <player-id>, caught, reveal, recenter, exit, status`

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogging(cfg.LogLevel)

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := setupServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up services")
	}
	defer services.Close()

	switch os.Args[1] {
	case "list":
		err = runList(ctx, services)
	case "create":
		err = runCreate(ctx, services, os.Args[2:])
	case "play":
		err = runPlay(ctx, services, os.Args[2:])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func runList(ctx context.Context, services *Services) error {
	games, err := services.API.ListGames(ctx)
	if err != nil {
		return err
	}
	if len(games) == 0 {
		fmt.Println("no games")
		return nil
	}
	for _, g := range games {
		fmt.Printf("%6d  %-24s %-10s %d players\n", g.ID, g.Name, g.Phase, len(g.Players))
	}
	return nil
}

func runCreate(ctx context.Context, services *Services, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	name := fs.String("name", "", "game name")
	radius := fs.Float64("radius", 100, "geofence radius in meters")
	prep := fs.Int("prep", 60, "preparation time in seconds")
	duration := fs.Int("duration", 600, "game time in seconds")
	if err := fs.Parse(args); err != nil {
		return err
	}

	at, err := services.currentLocation(ctx)
	if err != nil {
		return fmt.Errorf("failed to get location: %w", err)
	}

	game, err := actions.CreateGame(ctx, services.API, game_api_client.GamePostRequest{
		GameName:                 *name,
		LocationLat:              at.Latitude,
		LocationLong:             at.Longitude,
		Radius:                   *radius,
		PreparationTimeInSeconds: *prep,
		GameTimeInSeconds:        *duration,
	})
	if err != nil {
		return errors.New(clients.UserMessage(err))
	}
	fmt.Printf("created game %d (%s)\n", game.ID, game.Name)

	return play(ctx, services, navigation.Target{View: navigation.ForPhase(game.Phase), GameID: game.ID})
}

func runPlay(ctx context.Context, services *Services, args []string) error {
	if len(args) < 1 {
		return errors.New("play needs a game id")
	}
	gameID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid game id %q: %w", args[0], err)
	}

	at, err := services.currentLocation(ctx)
	if err != nil {
		return fmt.Errorf("failed to get location: %w", err)
	}

	// joining is the poll primitive issued once from the browse view
	game, err := services.API.UpdateGame(ctx, gameID, at, false)
	if err != nil {
		return errors.New(clients.UserMessage(err))
	}
	target := navigation.ForPhase(game.Phase)
	if target == navigation.ViewResults {
		fmt.Printf("game %d has already finished\n", gameID)
		return nil
	}
	return play(ctx, services, navigation.Target{View: target, GameID: gameID})
}

func play(ctx context.Context, services *Services, target navigation.Target) error {
	if _, err := services.resolveUser(ctx); err != nil {
		return err
	}

	if _, err := mapskey.Default().Load(ctx, services.API); err != nil {
		log.Warn().Err(err).Msg("maps key unavailable")
	}

	srv := setupServer(services)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("status server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("status server failed")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("status server shutdown failed")
		}
	}()

	go readCommands(ctx, os.Stdin, services.Router)

	final, err := services.Router.Run(ctx, target)
	if err != nil {
		return err
	}

	var view session.View
	if current := services.Router.Current(); current != nil {
		view = current.View()
	}
	if view.Notice != "" {
		fmt.Println(view.Notice)
	}

	switch final.View {
	case navigation.ViewResults:
		printResults(view)
	case navigation.ViewLogin:
		return fmt.Errorf("credential rejected, set %s and try again", config.TokenEnv)
	case navigation.ViewBrowse:
		fmt.Println("back to the game list")
	}
	return nil
}

func readCommands(ctx context.Context, in io.Reader, router *session.Router) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		current := router.Current()
		if current == nil {
			continue
		}

		if fields[0] == "status" {
			printStatus(current.View())
			continue
		}

		cmd, err := parseCommand(fields)
		if err != nil {
			fmt.Println(err)
			continue
		}
		if err := current.Submit(ctx, cmd); err != nil {
			return
		}
	}
}

func parseCommand(fields []string) (session.Command, error) {
	switch fields[0] {
	case "start":
		return session.Command{Kind: session.CommandStart}, nil
	case "exit":
		return session.Command{Kind: session.CommandExit}, nil
	case "recenter":
		return session.Command{Kind: session.CommandRecenter}, nil
	case "caught":
		return session.Command{Kind: session.CommandCaughtSelf}, nil
	case "reveal":
		return session.Command{Kind: session.CommandPowerUp, PowerUp: actions.PowerUpReveal}, nil
	case "catch":
		if len(fields) < 2 {
			return session.Command{}, errors.New("catch needs a player id")
		}
		id, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return session.Command{}, fmt.Errorf("invalid player id %q", fields[1])
		}
		return session.Command{Kind: session.CommandCatch, PlayerID: id}, nil
	default:
		return session.Command{}, fmt.Errorf("unknown command %q", fields[0])
	}
}

func printStatus(v session.View) {
	fmt.Printf("[%s] %s phase=%s time=%s", v.Screen, v.GameName, v.Phase, countdown.Format(v.Remaining))
	if v.Grace != "" && v.GraceRemaining > 0 {
		fmt.Printf(" grace=%ds", v.GraceRemaining)
	}
	if v.InArea != nil && !*v.InArea {
		fmt.Print(" OUTSIDE")
	}
	if v.WaitingForLocation {
		fmt.Print(" waiting-for-location")
	}
	fmt.Println()
	for _, p := range v.Players {
		fmt.Printf("  %4d %-20s %-6s %s\n", p.ID, p.DisplayName, p.Role, p.Status)
	}
	if v.Notice != "" {
		fmt.Println(" ", v.Notice)
	}
}

func printResults(v session.View) {
	fmt.Printf("%s finished\n", v.GameName)
	for _, r := range v.Results {
		rank := "-"
		if r.Rank != nil {
			rank = strconv.Itoa(*r.Rank)
		}
		fmt.Printf("  %3s  %-20s %-6s %s\n", rank, r.DisplayName, r.Role, r.Status)
	}
}
