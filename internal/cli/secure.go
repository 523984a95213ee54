package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/depgate/internal/configcrypt"
)

func init() {
	rootCmd.AddCommand(secureCmd)
	secureCmd.AddCommand(secureStoreCmd)
	secureCmd.AddCommand(secureShowCmd)
	secureCmd.AddCommand(secureSealCmd)
	secureCmd.AddCommand(secureVerifyCmd)
}

var secureCmd = &cobra.Command{
	Use:   "secure",
	Short: "Encrypted config document operations",
	Long: "Commands for config documents with encrypted sensitive fields and\n" +
		"a whole-document integrity hash.",
}

var secureStoreCmd = &cobra.Command{
	Use:   "store <file>",
	Short: "Encrypt the sensitive fields of a config document in place",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := configcrypt.NewDefault()
		if err != nil {
			return err
		}
		doc, err := readYAMLDoc(args[0])
		if err != nil {
			return err
		}
		if err := c.StoreSecureConfig(args[0], doc); err != nil {
			return err
		}
		fmt.Printf("stored %s with sensitive fields encrypted\n", args[0])
		return nil
	},
}

var secureShowCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Print a config document with its sensitive fields decrypted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := configcrypt.NewDefault()
		if err != nil {
			return err
		}
		doc, err := c.LoadSecureConfig(args[0])
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(doc)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	},
}

var secureSealCmd = &cobra.Command{
	Use:   "seal <file>",
	Short: "Stamp a config document with its content hash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := readYAMLDoc(args[0])
		if err != nil {
			return err
		}
		if err := configcrypt.SealIntegrity(doc); err != nil {
			return err
		}
		out, err := yaml.Marshal(doc)
		if err != nil {
			return err
		}
		if err := os.WriteFile(args[0], out, 0o600); err != nil {
			return err
		}
		fmt.Printf("sealed %s\n", args[0])
		return nil
	},
}

var secureVerifyCmd = &cobra.Command{
	Use:   "verify <file>",
	Short: "Check a config document against its content hash",
	Long:  "Recomputes the content hash and compares it with the stored one.\nExits 0 if intact, 1 if tampered or unsealed.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := readYAMLDoc(args[0])
		if err != nil {
			return err
		}
		res := configcrypt.VerifyIntegrity(doc)
		if res.Valid {
			fmt.Println("OK: content hash matches")
			return nil
		}
		fmt.Fprintf(os.Stderr, "FAILED: %s\n", res.Reason)
		os.Exit(1)
		return nil
	},
}

func readYAMLDoc(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return doc, nil
}
