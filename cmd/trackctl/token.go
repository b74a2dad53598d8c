package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func tokenCmd(env *ctlEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Check carrier credentials by acquiring an access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := env.f.newTokenSource(env.cfg, env.logger)
			if err != nil {
				return err
			}
			tok, err := src.Token(cmd.Context())
			if err != nil {
				return errors.Wrap(err, "acquire carrier token")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "token acquired: %s\n", maskToken(tok))
			return nil
		},
	}
}

// maskToken оставляет только первые символы, токен не должен попадать в логи терминала.
func maskToken(tok string) string {
	if len(tok) <= 8 {
		return "****"
	}
	return fmt.Sprintf("%s… (%d chars)", tok[:6], len(tok))
}
