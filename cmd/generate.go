package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/alecthomas/jsonschema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/brave-intl/momo-go/services/momo"
)

func init() {
	RootCmd.AddCommand(generateCmd)
	generateCmd.AddCommand(jsonSchemaCmd)

	jsonSchemaCmd.Flags().String("schema-dir", "./schema",
		"the directory schemas are written to")
	Must(viper.BindPFlag("schema-dir", jsonSchemaCmd.Flags().Lookup("schema-dir")))
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "entrypoint to generate subcommands",
}

var jsonSchemaCmd = &cobra.Command{
	Use:   "json-schema",
	Short: "entrypoint to generate json schema for project",
	Run:   Perform("generate json-schema", jsonSchemaRun),
}

// jsonSchemaRun - main entrypoint for the `generate json-schema` subcommand
func jsonSchemaRun(command *cobra.Command, args []string) error {
	return WriteSchemas(viper.GetString("schema-dir"), momo.APIResponseTypes, os.Stdout)
}

// WriteSchemas writes the json schema of every type to dir/<package>/<Name>,
// echoing each schema to out
func WriteSchemas(dir string, types []reflect.Type, out io.Writer) error {
	for _, t := range types {
		schema, err := jsonschema.ReflectFromType(t).MarshalJSON()
		if err != nil {
			return fmt.Errorf("failed to generate json schema for %s: %w", t, err)
		}

		parts := strings.Split(t.String(), ".")
		if err := os.MkdirAll(filepath.Join(dir, parts[0]), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, parts[0], parts[1]), schema, 0644); err != nil {
			return fmt.Errorf("failed to write json schema for %s: %w", t, err)
		}

		fmt.Fprintf(out, "%s\n", schema)
	}
	return nil
}
