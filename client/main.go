package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wfunc/tworooms/network"
)

// send frames and sends a message to the game server.
func send(c *websocket.Conn, msgID uint16, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.BinaryMessage, network.EncodePacket(msgID, data))
}

func main() {
	addr := flag.String("addr", "localhost:8080", "game server address")
	wallet := flag.String("wallet", "0xdemo", "wallet address to introduce as")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			packet, err := network.DecodePacket(message)
			if err != nil {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			log.Printf("<- RECV (ID: %d): %s", packet.MsgID, string(packet.Data))
		}
	}()

	log.Println("Introducing wallet", *wallet)
	if err := send(c, network.MsgTypeHello, map[string]string{"address": *wallet}); err != nil {
		log.Println("Write error:", err)
		return
	}

	log.Println("Commands: join <name> | start | elect <blue|red> <player-id> | hostage <player-id> | advance | reveal <signature>")

	// Write loop
	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		default:
			text, _ := reader.ReadString('\n')
			fields := strings.Fields(text)
			if len(fields) == 0 {
				continue
			}

			var err error
			switch fields[0] {
			case "join":
				err = send(c, network.MsgTypeJoinGame, map[string]string{"name": strings.Join(fields[1:], " ")})
			case "start":
				err = send(c, network.MsgTypeStartGame, map[string]string{})
			case "elect":
				if len(fields) != 3 {
					log.Println("Usage: elect <blue|red> <player-id>")
					continue
				}
				err = send(c, network.MsgTypeElectLeader, map[string]string{"room": fields[1], "player_id": fields[2]})
			case "hostage":
				if len(fields) != 2 {
					log.Println("Usage: hostage <player-id>")
					continue
				}
				err = send(c, network.MsgTypeSelectHostage, map[string]string{"player_id": fields[1]})
			case "advance":
				err = send(c, network.MsgTypeAdvanceRound, map[string]string{})
			case "reveal":
				if len(fields) != 2 {
					log.Println("Usage: reveal <signature>")
					continue
				}
				err = send(c, network.MsgTypeRevealRole, map[string]string{"signature": fields[1]})
			default:
				log.Printf("Unknown command %q", fields[0])
				continue
			}
			if err != nil {
				log.Println("Write error:", err)
				return
			}
		}
	}
}
