// FILE: adminfeed/src/internal/transport/handshake.go
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"adminfeed/src/internal/auth"

	"github.com/gorilla/websocket"
	"github.com/valyala/fastjson"
)

// awaitFrame reads until one of the wanted events arrives.
// Other frames (pushes racing the handshake) are dropped.
func (c *Client) awaitFrame(conn *websocket.Conn, p *fastjson.Parser, want ...string) (string, []byte, error) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return "", nil, fmt.Errorf("read failed: %w", err)
		}

		event, data, err := decodeFrame(p, msg)
		if err != nil {
			c.framesDropped.Add(1)
			c.logger.Debug("msg", "Dropping undecodable handshake frame",
				"component", "transport",
				"error", err)
			continue
		}

		if slices.Contains(want, event) {
			return event, data, nil
		}

		c.framesDropped.Add(1)
		c.logger.Debug("msg", "Dropping frame received during handshake",
			"component", "transport",
			"event", event)
	}
}

func (c *Client) authenticate(ctx context.Context, conn *websocket.Conn, p *fastjson.Parser) error {
	if c.opts.Scram != nil {
		return c.authenticateScram(conn, p, c.opts.Scram)
	}

	token, err := c.opts.Tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to obtain token: %w", err)
	}

	if err := c.writeFrame(conn, eventAuthenticate, authenticatePayload{Token: token}); err != nil {
		return err
	}

	event, data, err := c.awaitFrame(conn, p, eventAuthenticated, eventUnauthorized)
	if err != nil {
		return err
	}
	if event == eventUnauthorized {
		return fmt.Errorf("%w: %s", ErrAuthRejected, frameMessage(data))
	}

	c.logger.Debug("msg", "Authenticated",
		"component", "transport",
		"method", "token")
	return nil
}

func (c *Client) authenticateScram(conn *websocket.Conn, p *fastjson.Parser, account *auth.ScramAccount) error {
	client := account.NewClient()

	clientFirst, err := client.StartAuthentication()
	if err != nil {
		return err
	}
	if err := c.writeFrame(conn, eventScramFirst, clientFirst); err != nil {
		return err
	}

	event, data, err := c.awaitFrame(conn, p, eventScramChallenge, eventScramFail)
	if err != nil {
		return err
	}
	if event == eventScramFail {
		return fmt.Errorf("%w: %s", ErrAuthRejected, frameMessage(data))
	}

	var serverFirst auth.ServerFirst
	if err := json.Unmarshal(data, &serverFirst); err != nil {
		return fmt.Errorf("invalid scram challenge: %w", err)
	}

	clientFinal, err := client.ProcessServerFirst(&serverFirst)
	if err != nil {
		return fmt.Errorf("scram challenge: %w", err)
	}
	if err := c.writeFrame(conn, eventScramProof, clientFinal); err != nil {
		return err
	}

	event, data, err = c.awaitFrame(conn, p, eventScramOK, eventScramFail)
	if err != nil {
		return err
	}
	if event == eventScramFail {
		return fmt.Errorf("%w: %s", ErrAuthRejected, frameMessage(data))
	}

	var serverFinal auth.ServerFinal
	if err := json.Unmarshal(data, &serverFinal); err != nil {
		return fmt.Errorf("invalid scram final message: %w", err)
	}
	if err := client.VerifyServerFinal(&serverFinal); err != nil {
		return fmt.Errorf("scram server verification: %w", err)
	}

	if c.opts.Session != nil && serverFinal.SessionID != "" {
		c.opts.Session.Set(serverFinal.SessionID)
	}

	c.logger.Debug("msg", "Authenticated",
		"component", "transport",
		"method", "scram",
		"username", account.Username)
	return nil
}

func (c *Client) join(conn *websocket.Conn, p *fastjson.Parser) error {
	payload := joinPayload{Group: c.opts.Group, ClientID: c.opts.ClientID}
	if err := c.writeFrame(conn, eventJoin, payload); err != nil {
		return err
	}

	event, data, err := c.awaitFrame(conn, p, eventJoined, eventJoinError)
	if err != nil {
		return err
	}
	if event == eventJoinError {
		return fmt.Errorf("%w: %s", ErrJoinRejected, frameMessage(data))
	}
	return nil
}
