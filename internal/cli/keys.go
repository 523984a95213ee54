package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/depgate/internal/configcrypt"
)

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysInitCmd)
	keysCmd.AddCommand(keysRotateCmd)
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Config encryption key operations",
	Long:  "Commands for the owner-only key file backing config encryption.",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the encryption key file if it does not exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := configcrypt.DefaultKeyPath()
		if err != nil {
			return err
		}
		if _, err := configcrypt.NewKeeper(path).Key(); err != nil {
			return err
		}
		fmt.Printf("key ready at %s\n", path)
		return nil
	},
}

var keysRotateCmd = &cobra.Command{
	Use:   "rotate [config files...]",
	Short: "Install a fresh key and re-encrypt the given config files",
	Long: "Decrypts every named config document under the current key, backs\n" +
		"the key file up with a timestamp suffix, generates a fresh key and\n" +
		"re-encrypts the documents under it.",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := configcrypt.NewDefault()
		if err != nil {
			return err
		}
		backup, err := c.RotateKey(args...)
		if err != nil {
			return err
		}
		fmt.Printf("key rotated, old key backed up at %s\n", backup)
		fmt.Printf("%d config files re-encrypted\n", len(args))
		return nil
	},
}
