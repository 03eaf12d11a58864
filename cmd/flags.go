package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// outputFormats lists the renderers shared by the reporting commands.
var outputFormats = []string{"text", "json"}

// addFlagValidation wraps a registered flag so bad values are rejected
// when the flag is parsed instead of deep inside the command.
func addFlagValidation(cmd *cobra.Command, flagName string, validator func(string) error) {
	flag := cmd.Flags().Lookup(flagName)
	if flag == nil {
		return
	}
	flag.Value = &validatingValue{Value: flag.Value, validator: validator}
}

type validatingValue struct {
	pflag.Value
	validator func(string) error
}

func (v *validatingValue) Set(val string) error {
	if err := v.validator(val); err != nil {
		return err
	}
	return v.Value.Set(val)
}

func validateOutputFormat(value string) error {
	for _, format := range outputFormats {
		if value == format {
			return nil
		}
	}
	return fmt.Errorf("unsupported format: %s (supported: %s)", value, strings.Join(outputFormats, ", "))
}
