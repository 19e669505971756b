package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/mabhi256/jarscope/internal/config"
	"github.com/mabhi256/jarscope/internal/logging"
)

var (
	cfgFile  string
	logLevel string

	cfg    *config.Config
	logger *log.Logger
)

// errBuildsDiffer makes the process exit with status 2 without printing an error
var errBuildsDiffer = errors.New("builds differ")

var rootCmd = &cobra.Command{
	Use:   "jarscope",
	Short: "Dependency and build analysis for JVM archives",
	Long: `jarscope finds which methods of one JAR call into another, flags reflection that hides
such calls, and explains why two builds of the same code produce different bytecode.`,
	SilenceUsage:  true,
	SilenceErrors: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			if !slices.Contains(config.LogLevels, logLevel) {
				return fmt.Errorf("invalid log level: %s. Valid options: %v", logLevel, config.LogLevels)
			}
			cfg.Log.Level = logLevel
		}
		logger = logging.New(os.Stderr, cfg.Log.Level)

		switch cmd.Name() {
		case "install", "version", "help", "serve", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return nil
		}
		if !toTerminal(cmd) || !isShellSupported() {
			return nil
		}

		if !completionsExist() {
			fmt.Fprintln(os.Stderr, "🔧 First run detected, setting up jarscope...")
			if installCompletions(cmd.Root(), os.Stderr) == nil {
				fmt.Fprintln(os.Stderr, "✅ Shell completions installed")
				fmt.Fprintln(os.Stderr, "💡 Restart your shell to enable tab completion")
			} else {
				fmt.Fprintln(os.Stderr, "⚠️  Auto-setup failed. Run 'jarscope install' to try again.")
			}
		}
		return nil
	},
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install shell completions",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if !isInPath() {
			printPathInstructions(out)
			return
		}

		if !isShellSupported() {
			fmt.Fprintf(out, "❌ Shell completion not supported for: %s\n", detectShell())
			fmt.Fprintln(out, "Supported shells: bash, zsh, fish, powershell")
			return
		}

		if completionsExist() {
			fmt.Fprintln(out, "✅ Already configured!")
			return
		}

		fmt.Fprintln(out, "📦 Installing completions...")
		if err := installCompletions(cmd.Root(), out); err != nil {
			fmt.Fprintf(out, "❌ Failed: %v\n", err)
		} else {
			fmt.Fprintln(out, "✅ Done! Restart your shell to enable tab completion.")
		}
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	switch {
	case err == nil:
	case errors.Is(err, errBuildsDiffer):
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func completionsExist() bool {
	home, _ := os.UserHomeDir()

	paths := map[string]string{
		"bash":       filepath.Join(home, ".local/share/bash-completion/completions/jarscope"),
		"zsh":        filepath.Join(home, ".zsh/completions/_jarscope"),
		"fish":       filepath.Join(home, ".config/fish/completions/jarscope.fish"),
		"powershell": filepath.Join(home, "jarscope_completion.ps1"),
	}

	path := paths[detectShell()]
	_, err := os.Stat(path)
	return err == nil
}

func isShellSupported() bool {
	shell := detectShell()
	return shell == "bash" || shell == "zsh" || shell == "fish" || shell == "powershell"
}

func detectShell() string {
	if runtime.GOOS == "windows" {
		return "powershell"
	}

	shell := filepath.Base(os.Getenv("SHELL"))
	if shell == "" {
		return "bash"
	}
	return shell
}

type completionConfig struct {
	dir         string
	file        string
	genFunc     func(io.Writer) error
	activateCmd string
}

func installCompletions(rootCmd *cobra.Command, out io.Writer) error {
	home, _ := os.UserHomeDir()
	shell := detectShell()

	configs := map[string]completionConfig{
		"bash": {
			dir:     filepath.Join(home, ".local/share/bash-completion/completions"),
			file:    "jarscope",
			genFunc: rootCmd.GenBashCompletion,
			activateCmd: fmt.Sprintf("source %s",
				filepath.Join(home, ".local/share/bash-completion/completions/jarscope")),
		},
		"zsh": {
			dir:     filepath.Join(home, ".zsh/completions"),
			file:    "_jarscope",
			genFunc: rootCmd.GenZshCompletion,
			activateCmd: fmt.Sprintf("fpath=(%s $fpath) && autoload -U compinit && compinit",
				filepath.Join(home, ".zsh/completions")),
		},
		"fish": {
			dir:         filepath.Join(home, ".config/fish/completions"),
			file:        "jarscope.fish",
			genFunc:     func(w io.Writer) error { return rootCmd.GenFishCompletion(w, true) },
			activateCmd: "complete --do-complete=jarscope", // Trigger fish to reload completions
		},
		"powershell": {
			dir:     home,
			file:    "jarscope_completion.ps1",
			genFunc: rootCmd.GenPowerShellCompletionWithDesc,
			activateCmd: fmt.Sprintf(". %s",
				filepath.Join(home, "jarscope_completion.ps1")),
		},
	}

	completion, ok := configs[shell]
	if !ok {
		return fmt.Errorf("unsupported shell: %s", shell)
	}

	if err := os.MkdirAll(completion.dir, 0755); err != nil {
		return err
	}

	file, err := os.Create(filepath.Join(completion.dir, completion.file))
	if err != nil {
		return err
	}
	defer file.Close()

	if err := completion.genFunc(file); err != nil {
		return err
	}

	// Print activation command for immediate use
	fmt.Fprintf(out, "🔄 Run this command to enable auto-completions:\n")
	fmt.Fprintf(out, "   %s\n", completion.activateCmd)

	return nil
}

func isInPath() bool {
	execPath, err := os.Executable()
	if err != nil {
		return false
	}

	pathEnv := os.Getenv("PATH")
	paths := strings.Split(pathEnv, string(os.PathListSeparator))
	execDir := filepath.Dir(execPath)

	return slices.Contains(paths, execDir)
}

func printPathInstructions(out io.Writer) {
	execPath, _ := os.Executable()
	execDir := filepath.Dir(execPath)

	fmt.Fprintf(out, "❌ jarscope not in PATH. Binary location: %s\n\n", execPath)

	if runtime.GOOS == "windows" {
		fmt.Fprintf(out, "Add to PATH: %s\n", execDir)
	} else {
		fmt.Fprintf(out, "Add to shell profile: export PATH=\"%s:$PATH\"\n", execDir)
		fmt.Fprintf(out, "Or copy to: /usr/local/bin\n")
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./"+config.DefaultFile+" if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: "+strings.Join(config.LogLevels, ", "))
	rootCmd.RegisterFlagCompletionFunc("log-level", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return config.LogLevels, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(installCmd)
}
