package cli

import (
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

// NewRootCommand creates the meghabuild command tree.
func NewRootCommand(newApp AppFactory) *cobra.Command {
	var flags Flags

	cmd := &cobra.Command{
		Use:   "meghabuild",
		Short: "Build, install and release the meghanada server",
		Long: `meghabuild builds the modules declared in build.hcl into shaded jars,
installs them into the editor's home directory and publishes them to Maven
repositories or S3 buckets.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	pf := cmd.PersistentFlags()
	pf.StringVarP(&flags.Project, "project", "p", ".", "Project directory.")
	pf.StringSliceVarP(&flags.Files, "file", "f", nil, "Build descriptor file or directory, relative to the project. (default build.hcl)")
	pf.StringVar(&flags.LogLevel, "log-level", "info", "Logging level: 'debug', 'info', 'warn' or 'error'.")
	pf.StringVar(&flags.LogFormat, "log-format", "text", "Log output format: 'text' or 'json'.")
	pf.IntVar(&flags.Workers, "workers", runtime.NumCPU(), "Number of concurrent task workers.")
	pf.StringVar(&flags.Home, "home", "", "User home directory used for installs and the local Maven repository. (default current user's home)")
	pf.StringVar(&flags.JavaHome, "java-home", os.Getenv("JAVA_HOME"), "JDK used to compile sources.")
	pf.StringVar(&flags.Report, "report", "", "Write the publish report as YAML to this file.")

	cmd.AddCommand(newRunCmd(&flags, newApp))
	cmd.AddCommand(newTasksCmd(&flags, newApp))
	cmd.AddCommand(newVersionCmd(&flags, newApp))
	return cmd
}

func newRunCmd(flags *Flags, newApp AppFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "run <task>...",
		Short: "Run tasks and their dependencies",
		Example: `  meghabuild run shadowJar
  meghabuild run server:installToUserHome
  meghabuild run clean publish`,
		Args: minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.Config()
			if err != nil {
				return err
			}
			return newApp(cmd.ErrOrStderr(), cfg).Run(cmd.Context(), args...)
		},
	}
}

func newTasksCmd(flags *Flags, newApp AppFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks [task]...",
		Short: "List tasks, or the execution order of the given tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.Config()
			if err != nil {
				return err
			}
			return newApp(cmd.ErrOrStderr(), cfg).Tasks(cmd.Context(), cmd.OutOrStdout(), args...)
		},
	}
}

func newVersionCmd(flags *Flags, newApp AppFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the resolved version of every module",
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.NoArgs(cmd, args); err != nil {
				return usageError(err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.Config()
			if err != nil {
				return err
			}
			return newApp(cmd.ErrOrStderr(), cfg).Versions(cmd.Context(), cmd.OutOrStdout())
		},
	}
}
