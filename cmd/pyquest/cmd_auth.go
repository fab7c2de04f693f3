package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/pyquest/internal/config"
	"github.com/felixgeelhaar/pyquest/internal/storage/local"
)

// cmdRegister creates an account and stores the session token
func cmdRegister() error {
	if !isRunning() {
		return fmt.Errorf("daemon not running (run 'pyquest start' first)")
	}

	reader := bufio.NewReader(os.Stdin)
	email := prompt(reader, "Email")
	name := prompt(reader, "Display name")
	password := prompt(reader, "Password (min 8 chars)")

	body := map[string]string{
		"email":    email,
		"name":     name,
		"password": password,
	}

	var registered struct {
		User struct {
			Name string `json:"name"`
		} `json:"user"`
	}
	if err := apiPost("/api/v1/auth/register", "", body, &registered); err != nil {
		return err
	}

	// Registration does not open a session; log in right away.
	var result authResult
	if err := apiPost("/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	}, &result); err != nil {
		return fmt.Errorf("account created but login failed: %w", err)
	}

	if err := saveCredentials(credentials{
		Token:       result.Token,
		Email:       result.User.Email,
		DisplayName: result.User.Name,
	}); err != nil {
		return fmt.Errorf("save token: %w", err)
	}

	fmt.Printf("\n✓ Welcome, %s! You are logged in.\n", result.User.Name)
	return nil
}

// cmdLogin logs in and stores the session token
func cmdLogin() error {
	if !isRunning() {
		return fmt.Errorf("daemon not running (run 'pyquest start' first)")
	}

	reader := bufio.NewReader(os.Stdin)
	email := prompt(reader, "Email")
	password := prompt(reader, "Password")

	body := map[string]string{
		"email":    email,
		"password": password,
	}

	var result authResult
	if err := apiPost("/api/v1/auth/login", "", body, &result); err != nil {
		return err
	}

	if err := saveCredentials(credentials{
		Token:       result.Token,
		Email:       result.User.Email,
		DisplayName: result.User.Name,
	}); err != nil {
		return fmt.Errorf("save token: %w", err)
	}

	fmt.Printf("✓ Logged in as %s", result.User.Name)
	if result.Streak > 0 {
		fmt.Printf(" (%d day streak)", result.Streak)
	}
	fmt.Println()
	return nil
}

// cmdLogout revokes the session and discards the stored token
func cmdLogout() error {
	token, err := loadToken()
	if err != nil {
		fmt.Println("Not logged in")
		return nil
	}

	// Logout works on the session cookie, so hand the token back that way.
	req, err := http.NewRequest(http.MethodPost, daemonAddr+"/api/v1/auth/logout", nil)
	if err != nil {
		return err
	}
	req.AddCookie(&http.Cookie{Name: "session", Value: token})

	resp, err := http.DefaultClient.Do(req)
	if err == nil {
		resp.Body.Close()
	}

	if err := clearToken(); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}

	fmt.Println("✓ Logged out")
	return nil
}

type authResult struct {
	User struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"user"`
	Token  string `json:"token"`
	Streak int    `json:"streak"`
}

// credentials is the CLI's saved login state
type credentials struct {
	Token       string `json:"token"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Printf("%s: ", label)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func clientStore() (*local.Store, error) {
	dir, err := config.PyQuestDir()
	if err != nil {
		return nil, err
	}
	return local.NewStore(filepath.Join(dir, "cache"))
}

func saveCredentials(creds credentials) error {
	store, err := clientStore()
	if err != nil {
		return err
	}
	return store.Save("auth", "session", creds)
}

func loadToken() (string, error) {
	store, err := clientStore()
	if err != nil {
		return "", err
	}
	var creds credentials
	if err := store.Load("auth", "session", &creds); err != nil {
		return "", err
	}
	if creds.Token == "" {
		return "", fmt.Errorf("empty token")
	}
	return creds.Token, nil
}

func clearToken() error {
	store, err := clientStore()
	if err != nil {
		return err
	}
	if err := store.Delete("auth", "session"); err != nil && !errors.Is(err, local.ErrNotFound) {
		return err
	}
	return nil
}

// apiGet fetches a JSON document from the daemon. A non-empty token is
// sent as a bearer token.
func apiGet(path, token string, out any) error {
	req, err := http.NewRequest(http.MethodGet, daemonAddr+path, nil)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return doAPI(req, out)
}

func apiPost(path, token string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, daemonAddr+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return doAPI(req, out)
}

func doAPI(req *http.Request, out any) error {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("call daemon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		data, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			if resp.StatusCode == http.StatusUnauthorized {
				return fmt.Errorf("%s (run 'pyquest login')", apiErr.Error.Message)
			}
			return fmt.Errorf("%s", apiErr.Error.Message)
		}
		return fmt.Errorf("daemon returned %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
