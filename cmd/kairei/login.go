package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"
)

// newLoginCmd generates a one-time pairing token for this CLI to
// authenticate against a kairei instance's --api endpoint and renders
// it as a terminal QR code, mirroring a mobile companion app scanning
// a pairing code off a server's console output.
func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "generate a pairing code for this CLI",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := pairingToken()
			if err != nil {
				return fmt.Errorf("generate pairing token: %w", err)
			}
			pairingURL := apiBaseURL + "/pair?token=" + token

			qr, err := qrcode.New(pairingURL, qrcode.Medium)
			if err != nil {
				return fmt.Errorf("render QR code: %w", err)
			}

			fmt.Println(qr.ToSmallString(false))
			fmt.Println("pairing token:", token)
			fmt.Println("scan the code above, or open:", pairingURL)
			return nil
		},
	}
}

func pairingToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
