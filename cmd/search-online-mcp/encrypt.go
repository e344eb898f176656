package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"search-online-mcp/internal/domain"
	"search-online-mcp/internal/infra/config"
)

// runEncrypt reads one secret line from in and writes its "enc:" form, ready
// to paste into search.api_key. The passphrase comes from SEARCH_ONLINE_CONFIG_KEY.
func runEncrypt(in io.Reader, out io.Writer) error {
	passphrase := os.Getenv(config.EnvConfigKey)
	if passphrase == "" {
		return fmt.Errorf("%w: %s is not set", domain.ErrEncryption, config.EnvConfigKey)
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("read secret: %w", err)
	}
	secret := strings.TrimSpace(line)
	if secret == "" {
		return fmt.Errorf("%w: empty secret", domain.ErrEncryption)
	}

	enc, err := config.EncryptValue(secret, passphrase)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrEncryption, err)
	}
	_, err = fmt.Fprintf(out, "enc:%s\n", enc)
	return err
}
