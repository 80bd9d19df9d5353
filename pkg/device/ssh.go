package device

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/netfleet-ops/netfleet/pkg/inventory"
	"github.com/netfleet-ops/netfleet/pkg/util"
)

// Credentials are the device login shared by every host in a run.
type Credentials struct {
	Username string
	Password string
}

// SSHConnector dials devices over SSH. EOS hosts get a CLI connection;
// SONiC hosts additionally get a STATE_DB reader.
type SSHConnector struct {
	Credentials
	DialTimeout time.Duration
	// KnownHosts is an OpenSSH known_hosts file. When empty, host keys are
	// not verified.
	KnownHosts string

	once     sync.Once
	hostKeys ssh.HostKeyCallback
	keysErr  error
}

// NewSSHConnector creates a connector with the given login
func NewSSHConnector(creds Credentials) *SSHConnector {
	return &SSHConnector{Credentials: creds, DialTimeout: 30 * time.Second}
}

func (c *SSHConnector) hostKeyCallback() (ssh.HostKeyCallback, error) {
	c.once.Do(func() {
		if c.KnownHosts == "" {
			util.Logger.Warn("SSH host key verification disabled (no known_hosts file configured)")
			c.hostKeys = ssh.InsecureIgnoreHostKey()
			return
		}
		c.hostKeys, c.keysErr = knownhosts.New(c.KnownHosts)
	})
	return c.hostKeys, c.keysErr
}

// Connect implements Connector
func (c *SSHConnector) Connect(ctx context.Context, host *inventory.Host) (Conn, error) {
	client, err := c.dial(ctx, host)
	if err != nil {
		return nil, err
	}

	cli := &sshConn{host: host.Name, client: client}
	if host.GetPlatform() == inventory.PlatformSONiC {
		return newSONiCConn(cli), nil
	}
	return cli, nil
}

func (c *SSHConnector) dial(ctx context.Context, host *inventory.Host) (*ssh.Client, error) {
	hostKeys, err := c.hostKeyCallback()
	if err != nil {
		return nil, fmt.Errorf("loading known hosts: %w", err)
	}

	port := host.Port
	if port == 0 {
		port = 22
	}
	addr := net.JoinHostPort(host.Addr(), strconv.Itoa(port))

	config := &ssh.ClientConfig{
		User: c.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(c.Password),
			ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range questions {
					answers[i] = c.Password
				}
				return answers, nil
			}),
		},
		HostKeyCallback: hostKeys,
		Timeout:         c.DialTimeout,
	}

	d := net.Dialer{Timeout: c.DialTimeout}
	netConn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("SSH dial %s@%s: %w", c.Username, addr, err)
	}
	cc, chans, reqs, err := ssh.NewClientConn(netConn, addr, config)
	if err != nil {
		netConn.Close()
		return nil, fmt.Errorf("SSH handshake %s@%s: %w", c.Username, addr, err)
	}
	util.WithHost(host.Name).Debugf("SSH connected to %s", addr)
	return ssh.NewClient(cc, chans, reqs), nil
}

// sshConn runs CLI commands, one SSH session per command.
type sshConn struct {
	host   string
	client *ssh.Client
}

func (c *sshConn) Run(ctx context.Context, enc Encoding, cmds ...string) ([]Output, error) {
	results := make([]Output, 0, len(cmds))
	for _, cmd := range cmds {
		line := cmd
		if enc == EncodingJSON {
			line += " | json"
		}
		text, err := c.exec(ctx, line, nil)
		if err != nil {
			return results, err
		}
		if msg := cliError(text); msg != "" {
			return results, fmt.Errorf("command %q: %s", cmd, msg)
		}

		out := Output{Command: cmd, Text: text}
		if enc == EncodingJSON {
			if err := json.Unmarshal([]byte(text), &out.Data); err != nil {
				return results, fmt.Errorf("command %q: decoding JSON output: %w", cmd, err)
			}
			out.Text = ""
		}
		results = append(results, out)
	}
	return results, nil
}

func (c *sshConn) Configure(ctx context.Context, session string, lines []string) error {
	var script bytes.Buffer
	fmt.Fprintf(&script, "configure session %s\n", session)
	for _, l := range lines {
		script.WriteString(l)
		script.WriteByte('\n')
	}
	script.WriteString("end\n")

	text, err := c.exec(ctx, "", &script)
	if err != nil {
		return err
	}
	if msg := cliError(text); msg != "" {
		return fmt.Errorf("configure session %s: %s", session, msg)
	}
	return nil
}

func (c *sshConn) Close() error {
	return c.client.Close()
}

// exec runs cmd in a new SSH session. When cmd is empty, stdin is fed to an
// interactive shell instead. If ctx is done first the session is killed.
func (c *sshConn) exec(ctx context.Context, cmd string, stdin *bytes.Buffer) (string, error) {
	session, err := c.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("SSH session: %w", err)
	}
	defer session.Close()

	var outputBuf bytes.Buffer
	session.Stdout = &outputBuf
	session.Stderr = &outputBuf
	if stdin != nil {
		session.Stdin = stdin
	}

	if cmd == "" {
		err = session.Shell()
	} else {
		err = session.Start(cmd)
	}
	if err != nil {
		return "", fmt.Errorf("SSH start '%s': %w", cmd, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- session.Wait()
	}()

	select {
	case <-ctx.Done():
		session.Signal(ssh.SIGKILL)
		session.Close()
		<-done
		return outputBuf.String(), fmt.Errorf("SSH exec '%s': %w", cmd, ctx.Err())
	case err := <-done:
		if err != nil {
			return outputBuf.String(), fmt.Errorf("SSH exec '%s': %w", cmd, err)
		}
		return outputBuf.String(), nil
	}
}

// cliError returns the first CLI error line ("% Invalid input ...") in
// output, or "" when there is none.
func cliError(output string) string {
	sc := bufio.NewScanner(strings.NewReader(output))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "% ") {
			return strings.TrimPrefix(line, "% ")
		}
	}
	return ""
}
