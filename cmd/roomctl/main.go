// roomctl is a small command line client for a SourceVoid server.
//
//	roomctl -server URL create [-password PW] [-expire views|minutes|hours] [-value N]
//	roomctl -server URL cat ROOM_ID [-password PW]
//	roomctl -server URL watch ROOM_ID FILE [-password PW] [-debounce 1s]
//
// watch tails FILE and autosaves it into the room, coalescing rapid
// changes into one write per quiet window the same way the web editor
// does.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/Ayesha-Taranum/SourceVoid/internal/app/autosave"
)

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}

func main() {
	base := flag.String("server", "http://localhost:8080", "server base URL")
	password := flag.String("password", "", "room password")
	expire := flag.String("expire", "hours", "expiration policy: hours, minutes or views")
	value := flag.Int("value", 24, "expiration value")
	debounce := flag.Duration("debounce", time.Second, "autosave quiet window for watch")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage:
  roomctl -server URL create [-password PW] [-expire hours|minutes|views] [-value N]
  roomctl -server URL cat ROOM_ID [-password PW]
  roomctl -server URL watch ROOM_ID FILE [-password PW] [-debounce 1s]
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	switch flag.Arg(0) {
	case "create":
		id, err := createRoom(*base, *password, *expire, *value)
		if err != nil {
			fatal(err)
		}
		fmt.Println(id)
	case "cat":
		if flag.NArg() < 2 {
			fatal(fmt.Errorf("cat requires ROOM_ID"))
		}
		content, err := fetchRoom(*base, flag.Arg(1), *password)
		if err != nil {
			fatal(err)
		}
		fmt.Print(content)
	case "watch":
		if flag.NArg() < 3 {
			fatal(fmt.Errorf("watch requires ROOM_ID and FILE"))
		}
		if err := watchFile(*base, flag.Arg(1), flag.Arg(2), *password, *debounce); err != nil {
			fatal(err)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func createRoom(base, password, expire string, value int) (string, error) {
	body, _ := json.Marshal(map[string]interface{}{
		"password":        password,
		"expirationType":  expire,
		"expirationValue": value,
	})
	resp, err := http.Post(base+"/rooms", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("create failed: %s", resp.Status)
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func fetchRoom(base, id, password string) (string, error) {
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/rooms/%s", base, id), nil)
	if err != nil {
		return "", err
	}
	if password != "" {
		req.Header.Set("x-room-password", password)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", fmt.Errorf("room is protected, wrong or missing -password")
	case http.StatusGone:
		return "", fmt.Errorf("room has expired")
	default:
		return "", fmt.Errorf("fetch failed: %s", resp.Status)
	}
	var out struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Content, nil
}

func saveRoom(base, id, password, content string) error {
	body, _ := json.Marshal(map[string]string{"content": content})
	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/rooms/%s", base, id), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if password != "" {
		req.Header.Set("x-room-password", password)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("save failed: %s", resp.Status)
	}
	return nil
}

// watchFile polls FILE for changes and feeds them to a debouncer so
// an editor writing in bursts produces a single save per quiet
// window. Ctrl-C cancels the pending save and exits.
func watchFile(base, id, path, password string, debounce time.Duration) error {
	saver := autosave.New(debounce, func(content string) {
		if err := saveRoom(base, id, password, content); err != nil {
			fmt.Fprintln(os.Stderr, "save:", err)
			return
		}
		fmt.Fprintf(os.Stderr, "saved %d bytes\n", len(content))
	})
	defer saver.Close()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	var lastMod time.Time
	for {
		select {
		case <-ticker.C:
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			if info.ModTime().Equal(lastMod) {
				continue
			}
			lastMod = info.ModTime()

			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			saver.Edit(string(data))
		case <-sig:
			return nil
		}
	}
}
