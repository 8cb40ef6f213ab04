package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/yesod/internal/jwt"
	"github.com/dropDatabas3/yesod/internal/util/atomicwrite"
)

func newKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Gestión de la clave de firma",
	}

	var (
		out   string
		bits  int
		force bool
	)
	gen := &cobra.Command{
		Use:   "generate",
		Short: "Genera una clave RSA nueva en formato PEM",
		Long: "Genera una clave RSA y la escribe en --out junto con su PEM público (<out>.pub).\n" +
			"Para rotar: mover el .pub anterior a jwt.previous_public_keys y correr con --force.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if bits < jwt.MinRSABits {
				return fmt.Errorf("keys: --bits %d: mínimo %d", bits, jwt.MinRSABits)
			}
			if _, err := os.Stat(out); err == nil && !force {
				return fmt.Errorf("keys: %s ya existe (usar --force para reemplazarla)", out)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}

			kp, err := jwt.GenerateRSA(bits)
			if err != nil {
				return err
			}
			priv, err := jwt.EncodePrivateKeyPEM(kp)
			if err != nil {
				return err
			}
			pub, err := jwt.EncodePublicKeyPEM(kp.Public)
			if err != nil {
				return err
			}
			if err := atomicwrite.WriteFile(out, priv, 0o600); err != nil {
				return err
			}
			if err := atomicwrite.WriteFile(out+".pub", pub, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "kid=%s\nprivate: %s\npublic:  %s.pub\n", kp.KID, out, out)
			return nil
		},
	}
	gen.Flags().StringVar(&out, "out", "keys/signing.pem", "ruta del PEM privado")
	gen.Flags().IntVar(&bits, "bits", jwt.DefaultRSABits, "tamaño de la clave")
	gen.Flags().BoolVar(&force, "force", false, "reemplaza una clave existente")

	cmd.AddCommand(gen)
	return cmd
}
