package device

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"
)

// SONiC keeps operational state in redis DB 6 (STATE_DB) on the device.
// Redis listens only on the device loopback and has no authentication, so
// connections are dialled through the SSH client.
const (
	stateDBIndex = 6
	deviceRedis  = "127.0.0.1:6379"
)

var (
	_ StateReader = (*StateDB)(nil)
	_ StateReader = (*sonicConn)(nil)
)

// StateDB reads forwarding and neighbor state from a SONiC STATE_DB.
type StateDB struct {
	client *redis.Client
}

// NewStateDB wraps a redis client already pointed at STATE_DB.
func NewStateDB(client *redis.Client) *StateDB {
	return &StateDB{client: client}
}

// Close closes the underlying redis client.
func (s *StateDB) Close() error {
	return s.client.Close()
}

// sonicConn is an sshConn that also reads STATE_DB.
type sonicConn struct {
	*sshConn
	*StateDB
}

func newSONiCConn(cli *sshConn) *sonicConn {
	return &sonicConn{
		sshConn: cli,
		StateDB: NewStateDB(redis.NewClient(&redis.Options{
			Addr: deviceRedis,
			DB:   stateDBIndex,
			Dialer: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return cli.client.Dial("tcp", deviceRedis)
			},
			PoolSize: 1,
		})),
	}
}

// SONiC has no configuration sessions.
func (c *sonicConn) Configure(ctx context.Context, session string, lines []string) error {
	return ErrUnsupported
}

func (c *sonicConn) Close() error {
	c.StateDB.Close()
	return c.sshConn.Close()
}

// FDBEntries implements StateReader. Keys look like
// "FDB_TABLE|Vlan10:aa:bb:cc:dd:ee:ff".
func (s *StateDB) FDBEntries(ctx context.Context, mac string) ([]FDBEntry, error) {
	keys, err := scanKeys(ctx, s.client, "FDB_TABLE|*"+mac, 100)
	if err != nil {
		return nil, fmt.Errorf("STATE_DB FDB_TABLE: %w", err)
	}

	var entries []FDBEntry
	for _, key := range keys {
		vlan, keyMAC, ok := parseFDBKey(key)
		if !ok || keyMAC != mac {
			continue
		}
		vals, err := s.client.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("STATE_DB %s: %w", key, err)
		}
		entries = append(entries, FDBEntry{VLAN: vlan, MAC: keyMAC, Interface: vals["port"], Type: vals["type"]})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].VLAN != entries[j].VLAN {
			return entries[i].VLAN < entries[j].VLAN
		}
		return entries[i].Interface < entries[j].Interface
	})
	return entries, nil
}

// NeighEntries implements StateReader. Keys look like
// "NEIGH_TABLE|Ethernet0|10.0.0.5".
func (s *StateDB) NeighEntries(ctx context.Context, ip string) ([]NeighEntry, error) {
	keys, err := scanKeys(ctx, s.client, "NEIGH_TABLE|*|"+ip, 100)
	if err != nil {
		return nil, fmt.Errorf("STATE_DB NEIGH_TABLE: %w", err)
	}
	sort.Strings(keys)

	var entries []NeighEntry
	for _, key := range keys {
		iface, keyIP, ok := parseNeighKey(key)
		if !ok || keyIP != ip {
			continue
		}
		vals, err := s.client.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("STATE_DB %s: %w", key, err)
		}
		entries = append(entries, NeighEntry{IP: keyIP, MAC: vals["neigh"], Interface: iface, Family: vals["family"]})
	}
	return entries, nil
}

// scanKeys collects keys with cursor-based SCAN (non-blocking, unlike KEYS).
func scanKeys(ctx context.Context, client *redis.Client, pattern string, countHint int64) ([]string, error) {
	var cursor uint64
	var keys []string
	for {
		batch, nextCursor, err := client.Scan(ctx, cursor, pattern, countHint).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

// parseFDBKey splits "FDB_TABLE|Vlan10:aa:bb:cc:dd:ee:ff".
func parseFDBKey(key string) (vlan int, mac string, ok bool) {
	rest, found := strings.CutPrefix(key, "FDB_TABLE|")
	if !found {
		return 0, "", false
	}
	vlanName, mac, found := strings.Cut(rest, ":")
	if !found {
		return 0, "", false
	}
	vlan, err := strconv.Atoi(strings.TrimPrefix(vlanName, "Vlan"))
	if err != nil {
		return 0, "", false
	}
	return vlan, strings.ToLower(mac), true
}

// parseNeighKey splits "NEIGH_TABLE|Ethernet0|10.0.0.5". IPv6 addresses
// contain no '|', so the last separator delimits the address.
func parseNeighKey(key string) (iface, ip string, ok bool) {
	rest, found := strings.CutPrefix(key, "NEIGH_TABLE|")
	if !found {
		return "", "", false
	}
	i := strings.LastIndex(rest, "|")
	if i <= 0 || i == len(rest)-1 {
		return "", "", false
	}
	return rest[:i], rest[i+1:], true
}
