package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// FlagBuilder defines flags on one or more commands and binds them to viper keys.
// Each flag is started with Flag() followed by a typed definition, e.g.
//
//	NewFlagBuilder(cmd).Flag().String("momo-server", "", "the api url").Env("MOMO_API_URL").Bind("momo-server")
type FlagBuilder struct {
	commands []*cobra.Command
	key      string
}

func init() {
	viper.AutomaticEnv()
}

// NewFlagBuilder creates a new FlagBuilder for the given commands
func NewFlagBuilder(commands ...*cobra.Command) *FlagBuilder {
	return &FlagBuilder{commands: commands}
}

// AddCommand adds a command the following flags are defined on
func (fb *FlagBuilder) AddCommand(command *cobra.Command) *FlagBuilder {
	fb.commands = append(fb.commands, command)
	return fb
}

// Flag resets the builder to allow for chaining
func (fb *FlagBuilder) Flag() *FlagBuilder {
	fb.key = ""
	return fb
}

func (fb *FlagBuilder) setKey(key string) *FlagBuilder {
	if fb.key != "" {
		Must(fmt.Errorf("key has already been set to '%s' cannot set to '%s' try calling .Flag() before starting to define a new flag", fb.key, key))
	}
	fb.key = key
	return fb
}

// String attaches a string flag to the commands
func (fb *FlagBuilder) String(key string, defaultValue string, description string) *FlagBuilder {
	return fb.setKey(key).each(func(command *cobra.Command) {
		command.Flags().String(key, defaultValue, description)
	})
}

// Int attaches an int flag to the commands
func (fb *FlagBuilder) Int(key string, defaultValue int, description string) *FlagBuilder {
	return fb.setKey(key).each(func(command *cobra.Command) {
		command.Flags().Int(key, defaultValue, description)
	})
}

// Bool attaches a bool flag to the commands
func (fb *FlagBuilder) Bool(key string, defaultValue bool, description string) *FlagBuilder {
	return fb.setKey(key).each(func(command *cobra.Command) {
		command.Flags().Bool(key, defaultValue, description)
	})
}

// Duration attaches a duration flag to the commands
func (fb *FlagBuilder) Duration(key string, defaultValue time.Duration, description string) *FlagBuilder {
	return fb.setKey(key).each(func(command *cobra.Command) {
		command.Flags().Duration(key, defaultValue, description)
	})
}

// Bind binds the current flag to the viper key
func (fb *FlagBuilder) Bind(key string) *FlagBuilder {
	return fb.each(func(command *cobra.Command) {
		Must(viper.BindPFlag(key, command.Flags().Lookup(key)))
	})
}

// Env lets the environment variable env supply the current flag
func (fb *FlagBuilder) Env(env string) *FlagBuilder {
	Must(viper.BindEnv(fb.key, env))
	return fb
}

// Require marks the current flag as required on the command line
func (fb *FlagBuilder) Require() *FlagBuilder {
	return fb.each(func(command *cobra.Command) {
		Must(command.MarkFlagRequired(fb.key))
	})
}

func (fb *FlagBuilder) each(fn func(*cobra.Command)) *FlagBuilder {
	for _, command := range fb.commands {
		fn(command)
	}
	return fb
}

// Must exits when a command cannot be initialized
func Must(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize: %s\n", err)
		os.Exit(1)
	}
}
