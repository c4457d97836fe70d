package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"banana_clicker/internal/logger"
	"banana_clicker/internal/service"
	"banana_clicker/internal/ws"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
)

// Connects to a running server, clicks once over HTTP and waits for the
// progress frame on the websocket feed.
func main() {
	_ = godotenv.Load()
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		logger.Fatal("JWT_SECRET not set")
	}
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}
	base := "127.0.0.1:" + port

	service.InitJWT(secret)
	token, err := service.GenerateJWT(3001, time.Minute)
	if err != nil {
		logger.Fatal("token", "error", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+base+"/ws?token="+token, nil)
	if err != nil {
		logger.Fatal("dial", "error", err)
	}
	defer conn.Close()

	// ready + initial snapshot
	var before float64
	for i := 0; i < 2; i++ {
		env := read(conn)
		if env.Type == ws.MsgProgress {
			before = env.Data["balance"].(float64)
		}
	}

	req, _ := http.NewRequest(http.MethodPost, "http://"+base+"/api/v1/actions/click", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		logger.Fatal("click", "error", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		logger.Fatal("click rejected", "status", res.StatusCode)
	}

	env := read(conn)
	if env.Type != ws.MsgProgress {
		logger.Fatal("unexpected frame", "type", env.Type)
	}
	after := env.Data["balance"].(float64)
	fmt.Printf("ok: balance %.0f -> %.0f\n", before, after)
}

type frame struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

func read(conn *websocket.Conn) frame {
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		logger.Fatal("read", "error", err)
	}
	var f frame
	if err := json.Unmarshal(msg, &f); err != nil {
		logger.Fatal("decode", "error", err, "frame", string(msg))
	}
	return f
}
