package mcclient

import (
	"bytes"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/Tnze/go-mc/chat"
	pk "github.com/Tnze/go-mc/net/packet"
	"github.com/google/uuid"
)

// биты EnumSet в PlayerInfoUpdate
const (
	infoAddPlayer = 1 << iota
	infoInitChat
	infoGameMode
	infoListed
	infoLatency
	infoDisplayName
)

func (c *Client) handlePlayerInfoUpdate(p pk.Packet) error {
	r := bytes.NewReader(p.Data)
	var (
		actions pk.Byte
		count   pk.VarInt
	)
	if _, err := (pk.Tuple{&actions, &count}).ReadFrom(r); err != nil {
		return err
	}

	var joined []string
	for i := 0; i < int(count); i++ {
		var id pk.UUID
		if _, err := id.ReadFrom(r); err != nil {
			return err
		}
		name, err := readPlayerActions(r, byte(actions))
		if err != nil {
			return err
		}
		if name == "" {
			continue
		}
		c.mu.Lock()
		_, known := c.players[uuid.UUID(id)]
		c.players[uuid.UUID(id)] = name
		for _, e := range c.entities {
			if e.UUID == [16]byte(id) {
				e.Username = name
			}
		}
		announce := !known && c.self.spawned && name != c.cfg.Username
		c.mu.Unlock()
		if announce {
			joined = append(joined, name)
		}
	}
	if c.OnPlayerJoined != nil {
		for _, name := range joined {
			c.OnPlayerJoined(name)
		}
	}
	return nil
}

// readPlayerActions читает блоки действий одной записи; возвращает ник, если был add_player.
func readPlayerActions(r io.Reader, actions byte) (string, error) {
	var name pk.String
	if actions&infoAddPlayer != 0 {
		var props []property
		if _, err := (pk.Tuple{&name, pk.Array(&props)}).ReadFrom(r); err != nil {
			return "", err
		}
	}
	if actions&infoInitChat != 0 {
		var has pk.Boolean
		if _, err := has.ReadFrom(r); err != nil {
			return "", err
		}
		if has {
			var (
				session   pk.UUID
				expiry    pk.Long
				key, sign pk.ByteArray
			)
			if _, err := (pk.Tuple{&session, &expiry, &key, &sign}).ReadFrom(r); err != nil {
				return "", err
			}
		}
	}
	if actions&infoGameMode != 0 {
		var gm pk.VarInt
		if _, err := gm.ReadFrom(r); err != nil {
			return "", err
		}
	}
	if actions&infoListed != 0 {
		var listed pk.Boolean
		if _, err := listed.ReadFrom(r); err != nil {
			return "", err
		}
	}
	if actions&infoLatency != 0 {
		var ping pk.VarInt
		if _, err := ping.ReadFrom(r); err != nil {
			return "", err
		}
	}
	if actions&infoDisplayName != 0 {
		var has pk.Boolean
		if _, err := has.ReadFrom(r); err != nil {
			return "", err
		}
		if has {
			var display chat.Message
			if _, err := display.ReadFrom(r); err != nil {
				return "", err
			}
		}
	}
	return string(name), nil
}

// property — свойство профиля (скин и т.п.)
type property struct {
	Name, Value string
	Signature   *string
}

func (pr *property) ReadFrom(r io.Reader) (int64, error) {
	var (
		name, value pk.String
		signed      pk.Boolean
	)
	n, err := (pk.Tuple{&name, &value, &signed}).ReadFrom(r)
	if err != nil {
		return n, err
	}
	pr.Name, pr.Value = string(name), string(value)
	if signed {
		var sig pk.String
		n2, err := sig.ReadFrom(r)
		n += n2
		if err != nil {
			return n, err
		}
		s := string(sig)
		pr.Signature = &s
	}
	return n, nil
}

func (c *Client) handlePlayerInfoRemove(p pk.Packet) error {
	var ids []pk.UUID
	if err := p.Scan(pk.Array(&ids)); err != nil {
		return err
	}
	var left []string
	c.mu.Lock()
	for _, id := range ids {
		if name, ok := c.players[uuid.UUID(id)]; ok {
			delete(c.players, uuid.UUID(id))
			left = append(left, name)
		}
	}
	c.mu.Unlock()
	if c.OnPlayerLeft != nil {
		for _, name := range left {
			c.OnPlayerLeft(name)
		}
	}
	return nil
}

// Players — ники из таб-листа, по алфавиту.
func (c *Client) Players() []string {
	c.mu.RLock()
	out := make([]string, 0, len(c.players))
	for _, name := range c.players {
		out = append(out, name)
	}
	c.mu.RUnlock()
	sort.Strings(out)
	return out
}

// ========================= чат =========================

var (
	reVanillaChat = regexp.MustCompile(`^<([^>]+)>\s(.*)$`)
	// "[Ранг] Ник: текст" / "Ник » текст" — формат чат-плагинов
	rePluginChat = regexp.MustCompile(`^(?:\[[^\]]*\]\s*)*([A-Za-z0-9_]{3,16})\s*(?::|»|>)\s(.*)$`)
)

// ParseChatLine достаёт отправителя и текст из строки системного чата.
func ParseChatLine(line string) (sender, text string, ok bool) {
	line = strings.TrimSpace(line)
	if m := reVanillaChat.FindStringSubmatch(line); m != nil {
		return m[1], m[2], true
	}
	if m := rePluginChat.FindStringSubmatch(line); m != nil {
		return m[1], m[2], true
	}
	return "", "", false
}

func (c *Client) handleSystemChat(p pk.Packet) error {
	var (
		content chat.Message
		overlay pk.Boolean
	)
	if err := p.Scan(&content, &overlay); err != nil {
		return err
	}
	if overlay || c.OnChat == nil {
		return nil
	}
	if sender, text, ok := ParseChatLine(content.ClearString()); ok {
		c.OnChat(sender, text)
	}
	return nil
}

// PlayerChat: uuid отправителя, индекс, опциональная подпись (256 байт), текст.
func (c *Client) handlePlayerChat(p pk.Packet) error {
	r := bytes.NewReader(p.Data)
	var (
		sender pk.UUID
		index  pk.VarInt
		signed pk.Boolean
		body   pk.String
	)
	if _, err := (pk.Tuple{&sender, &index, &signed}).ReadFrom(r); err != nil {
		return err
	}
	if signed {
		if _, err := io.CopyN(io.Discard, r, 256); err != nil {
			return err
		}
	}
	if _, err := body.ReadFrom(r); err != nil {
		return err
	}
	c.mu.RLock()
	name := c.players[uuid.UUID(sender)]
	c.mu.RUnlock()
	if c.OnChat != nil && name != "" {
		c.OnChat(name, string(body))
	}
	return nil
}
