// Package main provides the player entry point.
package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/dirplay/dirplay/internal/app/browser"
	"github.com/dirplay/dirplay/internal/app/notify"
	"github.com/dirplay/dirplay/internal/app/playback"
	"github.com/dirplay/dirplay/internal/domain/track"
	"github.com/dirplay/dirplay/internal/infra/config"
	"github.com/dirplay/dirplay/internal/infra/engine"
	"github.com/dirplay/dirplay/internal/infra/logger"
	"github.com/dirplay/dirplay/internal/infra/metadata"
)

var (
	app        = kingpin.New("dirplay", "directory-browsing music player")
	configPath = app.Flag("config", "Path to settings file").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
	engineFlag = app.Flag("engine", "Media engine override (beep or clock)").String()

	playCmd = app.Command("play", "Browse and play a directory (default)").Default()
	playDir = playCmd.Arg("dir", "Directory to open").String()

	listCmd = app.Command("list", "Print the directory listing and exit")
	listDir = listCmd.Arg("dir", "Directory to list").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{Output: "stdout", Level: "info"}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	cfgPath := *configPath
	if cfgPath == "" {
		cfgPath = config.DefaultPath()
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load settings: %v", err)
	}
	if *engineFlag != "" {
		cfg.Engine.Type = *engineFlag
	}

	if command == listCmd.FullCommand() {
		runList(cfg)
		return
	}

	if err := run(cfg, cfgPath); err != nil {
		zlog.Error().Msgf("Player error: %v", err)
		os.Exit(1)
	}
}

// runList prints the browsed listing and exits.
func runList(cfg *config.Config) {
	dir := *listDir
	if dir == "" {
		dir = cfg.Location
	}

	b := browser.New(absOr(dir))
	entries, err := b.List()
	if err != nil {
		zlog.Fatal().Msgf("Failed to list %s: %v", b.Location(), err)
	}

	fmt.Println(b.Location())
	printEntries(entries)
}

// run executes the interactive player loop. Using a separate function
// ensures defer statements run even when returning with an error.
func run(cfg *config.Config, cfgPath string) error {
	startDir := cfg.Location
	if *playDir != "" {
		startDir = *playDir
	}
	b := browser.New(absOr(startDir))

	ctrl := playback.New(playback.Config{Wrap: wrapPolicy(cfg.Wrap)})
	defer ctrl.Close()

	eng, err := engine.New(cfg.Engine, ctrl)
	if err != nil {
		return err
	}
	ctrl.AttachEngine(eng)
	defer eng.Close()

	volume, muted := cfg.Volume, cfg.Muted
	if vc, ok := eng.(engine.VolumeControl); ok {
		vc.SetVolume(volume)
		vc.SetMuted(muted)
	}

	notifier := notify.NewManager()
	defer notifier.Close()
	notifier.Subscribe(consoleStream{})
	go notifier.Dispatch(ctrl.Events())

	watcher, err := browser.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Watch(b.Location()); err != nil {
		zlog.Warn().Msgf("Cannot watch %s: %v", b.Location(), err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	entries := showListing(b)
	fmt.Println(`Type "help" for commands.`)

	for {
		select {
		case <-sigCh:
			fmt.Println()
			zlog.Info().Msg("Received shutdown signal...")
			return saveSettings(cfg, cfgPath, b, volume, muted)

		case dir := <-watcher.Refresh():
			if dir == b.Location() {
				fmt.Println("directory changed, refreshing")
				entries = showListing(b)
			}

		case line, ok := <-lines:
			if !ok {
				return saveSettings(cfg, cfgPath, b, volume, muted)
			}

			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			cmd, args := fields[0], fields[1:]

			switch cmd {
			case "quit", "q", "exit":
				return saveSettings(cfg, cfgPath, b, volume, muted)

			case "help":
				printHelp()

			case "ls":
				entries = showListing(b)

			case "cd":
				if len(args) == 0 {
					fmt.Println("usage: cd <number>")
					continue
				}
				e, err := pickEntry(entries, args[0])
				if err != nil {
					fmt.Println("error:", err)
					continue
				}
				if !e.IsDir {
					fmt.Println("error: not a directory")
					continue
				}
				if err := b.Enter(e.Name); err != nil {
					fmt.Println("error:", err)
					continue
				}
				watchCurrent(watcher, b)
				entries = showListing(b)

			case "up":
				b.Up()
				watchCurrent(watcher, b)
				entries = showListing(b)

			case "home":
				b.Home()
				watchCurrent(watcher, b)
				entries = showListing(b)

			case "play", "p":
				if len(args) == 0 {
					reportErr(ctrl.Play())
					continue
				}
				e, err := pickEntry(entries, args[0])
				if err != nil {
					fmt.Println("error:", err)
					continue
				}
				if e.IsDir {
					if err := b.Enter(e.Name); err != nil {
						fmt.Println("error:", err)
						continue
					}
					watchCurrent(watcher, b)
					entries = showListing(b)
					continue
				}
				reportErr(startPlayback(ctrl, b, e))

			case "pause":
				reportErr(ctrl.Pause())

			case "stop":
				reportErr(ctrl.Stop())

			case "next", "n":
				reportErr(ctrl.Next())

			case "prev":
				reportErr(ctrl.Previous())

			case "seek":
				if len(args) == 0 {
					fmt.Println("usage: seek <seconds>")
					continue
				}
				secs, err := strconv.Atoi(args[0])
				if err != nil {
					fmt.Println("usage: seek <seconds>")
					continue
				}
				reportErr(ctrl.Seek(time.Duration(secs) * time.Second))

			case "vol":
				if len(args) == 0 {
					fmt.Printf("volume: %d%%\n", volume)
					continue
				}
				v, err := strconv.Atoi(args[0])
				if err != nil || v < 0 || v > 100 {
					fmt.Println("usage: vol <0-100>")
					continue
				}
				volume = v
				if vc, ok := eng.(engine.VolumeControl); ok {
					vc.SetVolume(volume)
				}

			case "mute":
				muted = !muted
				if vc, ok := eng.(engine.VolumeControl); ok {
					vc.SetMuted(muted)
				}
				if muted {
					fmt.Println("muted")
				} else {
					fmt.Println("unmuted")
				}

			case "status":
				printStatus(ctrl)

			default:
				fmt.Printf("unknown command %q, type \"help\"\n", cmd)
			}
		}
	}
}

// startPlayback loads the current directory's playable files as the
// queue, starting at the chosen entry.
func startPlayback(ctrl *playback.Controller, b *browser.Browser, e browser.Entry) error {
	playlist, err := b.Playlist()
	if err != nil {
		return err
	}

	index := -1
	for i := range playlist {
		playlist[i] = metadata.Apply(playlist[i])
		if playlist[i].Path == e.Path {
			index = i
		}
	}
	if index < 0 {
		return fmt.Errorf("%s is not playable", e.Name)
	}

	return ctrl.LoadQueue(playlist, index)
}

// saveSettings persists location and volume, as the original settings
// are meant to survive restarts.
func saveSettings(cfg *config.Config, path string, b *browser.Browser, volume int, muted bool) error {
	cfg.Location = b.Location()
	cfg.Volume = volume
	cfg.Muted = muted
	if err := cfg.Save(path); err != nil {
		zlog.Warn().Msgf("Failed to save settings: %v", err)
	}
	return nil
}

func watchCurrent(w *browser.Watcher, b *browser.Browser) {
	if err := w.Watch(b.Location()); err != nil {
		zlog.Warn().Msgf("Cannot watch %s: %v", b.Location(), err)
	}
}

func showListing(b *browser.Browser) []browser.Entry {
	entries, err := b.List()
	if err != nil {
		fmt.Println("error:", err)
		return nil
	}
	fmt.Println(b.Location())
	printEntries(entries)
	return entries
}

func printEntries(entries []browser.Entry) {
	if len(entries) == 0 {
		fmt.Println("  (empty)")
		return
	}
	for i, e := range entries {
		if e.IsDir {
			fmt.Printf("  %3d  %s/\n", i+1, e.Name)
		} else {
			fmt.Printf("  %3d  %s\n", i+1, e.Name)
		}
	}
}

// pickEntry resolves a 1-based listing number.
func pickEntry(entries []browser.Entry, arg string) (browser.Entry, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(entries) {
		return browser.Entry{}, fmt.Errorf("no entry %q", arg)
	}
	return entries[n-1], nil
}

func printStatus(ctrl *playback.Controller) {
	cur, ok := ctrl.Current()
	if !ok {
		fmt.Println("nothing selected")
		return
	}
	elapsed, total := ctrl.Position()
	fmt.Printf("%s  %s  %s / %s\n", ctrl.State(), describe(cur), formatTime(elapsed), formatTime(total))
}

func printHelp() {
	fmt.Print(`  ls              list the current directory
  cd <n>          enter directory number n
  up              go to the parent directory
  home            go to the home directory
  play [n]        play entry n, or resume playback
  pause           pause playback
  stop            stop playback
  next, prev      skip forward / backward
  seek <seconds>  jump to a position in the current track
  vol [0-100]     show or set the volume
  mute            toggle mute
  status          show the current track and position
  quit            save settings and exit
`)
}

func reportErr(err error) {
	if err != nil {
		fmt.Println("error:", err)
	}
}

func describe(t track.Track) string {
	if t.Artist != "" {
		return t.Artist + " - " + t.Title
	}
	return t.Title
}

// formatTime renders a duration as hh:mm:ss.
func formatTime(d time.Duration) string {
	s := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, s%3600/60, s%60)
}

func absOr(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}
	return abs
}

func wrapPolicy(s string) playback.WrapPolicy {
	if s == "around" {
		return playback.WrapAround
	}
	return playback.WrapNone
}

// consoleStream renders player notifications on stdout.
type consoleStream struct{}

func (consoleStream) Send(n notify.Notification) error {
	ev := n.Event
	switch ev.Type {
	case playback.EventTrackStarted:
		if ev.Track != nil {
			fmt.Printf("playing: %s\n", describe(*ev.Track))
		}
	case playback.EventStateChanged:
		if ev.Track != nil {
			fmt.Printf("%s: %s\n", ev.State, describe(*ev.Track))
		} else {
			fmt.Println(ev.State)
		}
	case playback.EventQueueEnded:
		fmt.Println("end of queue")
	case playback.EventPlaybackError:
		fmt.Printf("playback error: %s\n", ev.Reason)
	case playback.EventPositionChanged:
		// Position is polled via the status command instead of
		// being streamed to the console.
	}
	return nil
}
