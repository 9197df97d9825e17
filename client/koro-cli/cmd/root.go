package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	koroHTTP "Koro/backend/go/pkg/http"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	token     string
)

var rootCmd = &cobra.Command{
	Use:   "koro-cli",
	Short: "A CLI client for the Koro chat service",
	Long:  `A command-line interface for chatting with Koro, managing sessions and inspecting stored memory.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your CLI: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	defaultServer := os.Getenv("KORO_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServer, "Koro service base URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("KORO_TOKEN"), "access token (default is the one saved by login)")
}

// tokenPath 是 login 保存令牌的位置。
func tokenPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".koro", "token"), nil
}

func saveToken(t string) error {
	path, err := tokenPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(t), 0o600)
}

// accessToken 依次使用 --token、KORO_TOKEN 与保存的令牌。
func accessToken() (string, error) {
	if token != "" {
		return token, nil
	}
	path, err := tokenPath()
	if err != nil {
		return "", err
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", errors.New("not logged in, run: koro-cli login")
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

func newClient() (*koroHTTP.Client, error) {
	return koroHTTP.NewDefaultClient()
}

func endpoint(path string) string {
	return strings.TrimSuffix(serverURL, "/") + "/api/v1" + path
}

// callAPI 发送一个需要登录的 JSON 请求。
func callAPI(ctx context.Context, method, path string, in, out interface{}) error {
	tok, err := accessToken()
	if err != nil {
		return err
	}
	client, err := newClient()
	if err != nil {
		return err
	}
	return client.DoJSON(ctx, method, endpoint(path), tok, in, out)
}

// socketURL 把服务地址转换为 WebSocket 地址，令牌通过查询参数传递。
func socketURL(tok string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws/chat"
	u.RawQuery = url.Values{"token": {tok}}.Encode()
	return u.String(), nil
}
