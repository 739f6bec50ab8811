package main

import (
	"encoding/base64"
	"flag"
	"fmt"
	"log"
	"os"

	webpush "github.com/SherClockHolmes/webpush-go"
)

func main() {
	out := flag.String("out", "./data/vapid_keys.env", "file to write the generated keys to (empty to skip)")
	flag.Parse()

	privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		log.Fatalf("Failed to generate VAPID keys: %v", err)
	}

	envContent := fmt.Sprintf(`# Web Push VAPID keys
# Add these to your .env file or export them as environment variables

VAPID_PUBLIC_KEY=%s
VAPID_PRIVATE_KEY=%s
VAPID_SUBJECT=mailto:your-email@example.com
`,
		publicKey,
		privateKey,
	)

	if *out != "" {
		if err := os.WriteFile(*out, []byte(envContent), 0600); err != nil {
			log.Fatalf("Failed to write keys to file: %v", err)
		}
		fmt.Println("Keys saved to:", *out)
		fmt.Println()
	}

	fmt.Println("Add these to your .env file:")
	fmt.Println("----------------------------------------")
	fmt.Println(envContent)
	fmt.Println("----------------------------------------")

	// Sanity-check the encoding the push service expects
	if _, err := base64.RawURLEncoding.DecodeString(publicKey); err != nil {
		fmt.Printf("Warning: public key is not valid base64 URL encoding: %v\n", err)
	}
}
