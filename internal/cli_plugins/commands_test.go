package cliplugins

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"udpchat/internal/communicator"
	"udpchat/internal/config"
	"udpchat/internal/storage/history"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 3 * time.Second

// syncBuffer is a bytes.Buffer safe for a writer and a reader goroutine
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// fakeSource returns a fixed interface table
type fakeSource struct {
	ifaces  []net.Interface
	addrs   map[string][]net.Addr
	host    []net.IP
	hostErr error
}

func (f fakeSource) Interfaces() ([]net.Interface, error) { return f.ifaces, nil }

func (f fakeSource) Addrs(i net.Interface) ([]net.Addr, error) { return f.addrs[i.Name], nil }

func (f fakeSource) InterfaceByName(name string) (*net.Interface, error) {
	return nil, &net.OpError{Op: "route", Net: "ip+net", Err: errors.New("no such network interface")}
}

func (f fakeSource) LocalHostAddrs() ([]net.IP, error) { return f.host, f.hostErr }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setEnv clears the variables cleanenv reads so the host environment does not leak in
func setEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_PATH", "ENV", "NAME", "HIDE_OWN", "HISTORY_PATH", "NOTIFIER_BUFFER",
		"TRANSPORT_MODE", "TRANSPORT_ADDRESS", "TRANSPORT_PORT", "TRANSPORT_BUFFER_SIZE",
		"TRANSPORT_DEFAULT_INTERFACE", "TRANSPORT_DISCOVER_INTERFACE", "TRANSPORT_MULTICAST_TTL",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	pc, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	port := pc.LocalAddr().(*net.UDPAddr).Port
	require.NoError(t, pc.Close())
	return port
}

func runCLI(ctx context.Context, app *AppContext, args ...string) error {
	c := NewCLI(app, func(string) *slog.Logger { return discardLogger() })
	c.Root().SetArgs(args)
	c.Root().SetOut(io.Discard)
	c.Root().SetErr(io.Discard)
	return c.Run(ctx)
}

// listenOn starts a communicator that collects lines arriving on cfg
func listenOn(t *testing.T, cfg config.Transport) <-chan string {
	t.Helper()

	lines := make(chan string, 16)
	errs := make(chan error, 16)
	c, err := communicator.New(cfg, communicator.Funcs{
		OnMessage: func(text string) { lines <- text },
		OnError:   func(err error) { errs <- err },
	}, discardLogger())
	require.NoError(t, err)
	require.NoError(t, c.StartListening())
	t.Cleanup(func() { c.StopListening() })

	deadline := time.After(waitTimeout)
	for c.State() != communicator.StateListening {
		select {
		case err := <-errs:
			t.Fatalf("listener failed: %v", err)
		case <-deadline:
			t.Fatal("listener did not start")
		case <-time.After(10 * time.Millisecond):
		}
	}
	return lines
}

func broadcastConfig(port int) config.Transport {
	return config.Transport{
		Mode:       config.ModeBroadcast,
		Address:    "127.255.255.255",
		Port:       port,
		BufferSize: 100,
	}
}

func transportArgs(cfg config.Transport) []string {
	return []string{"--mode", cfg.Mode, "--address", cfg.Address, "--port", strconv.Itoa(cfg.Port)}
}

func expectLine(t *testing.T, lines <-chan string, expected string) {
	t.Helper()
	select {
	case got := <-lines:
		assert.Equal(t, expected, got)
	case <-time.After(waitTimeout):
		t.Fatalf("timed out waiting for %q", expected)
	}
}

func TestSendCommand(t *testing.T) {
	setEnv(t)
	cfg := config.Transport{Mode: config.ModeUnicast, Address: "127.0.0.1", Port: freePort(t), BufferSize: 100}
	lines := listenOn(t, cfg)

	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{name: "Message flag", args: []string{"-n", "Alice", "-m", "hi"}, expected: "Alice: hi"},
		{name: "Message from args", args: []string{"-n", "Bob", "good", "morning"}, expected: "Bob: good morning"},
		{name: "Empty message", args: []string{"-n", "Bob"}, expected: "Bob: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := NewAppContext(strings.NewReader(""), io.Discard)
			args := append([]string{"send"}, transportArgs(cfg)...)
			args = append(args, tt.args...)

			require.NoError(t, runCLI(context.Background(), app, args...))
			expectLine(t, lines, tt.expected)
		})
	}
}

func TestSendCommand_NameFromEnv(t *testing.T) {
	setEnv(t)
	t.Setenv("NAME", "Carol")
	cfg := config.Transport{Mode: config.ModeUnicast, Address: "127.0.0.1", Port: freePort(t), BufferSize: 100}
	lines := listenOn(t, cfg)

	app := NewAppContext(strings.NewReader(""), io.Discard)
	args := append([]string{"send"}, transportArgs(cfg)...)
	require.NoError(t, runCLI(context.Background(), app, append(args, "hello")...))

	expectLine(t, lines, "Carol: hello")
}

func TestSendCommand_RequiresName(t *testing.T) {
	setEnv(t)
	app := NewAppContext(strings.NewReader(""), io.Discard)

	err := runCLI(context.Background(), app, "send", "--mode", "unicast", "--address", "127.0.0.1", "hi")
	assert.ErrorIs(t, err, ErrNameRequired)
}

func TestSendCommand_InvalidOverride(t *testing.T) {
	setEnv(t)
	app := NewAppContext(strings.NewReader(""), io.Discard)

	err := runCLI(context.Background(), app, "send", "--port", "70000", "-n", "Alice", "hi")
	assert.ErrorIs(t, err, config.ErrInvalidPort)
}

func TestSendCommand_DiscoveryFailureDoesNotFailSend(t *testing.T) {
	setEnv(t)
	cfg := config.Transport{
		Mode:         config.ModeMulticast,
		Address:      "239.255.42.97",
		Port:         freePort(t),
		BufferSize:   100,
		MulticastTTL: 1,
	}

	// без маршрута для multicast отправка невозможна на этом хосте
	conn, err := net.DialUDP("udp4", nil, &net.UDPAddr{IP: net.ParseIP(cfg.Address), Port: cfg.Port})
	if err == nil {
		_, err = conn.Write([]byte("x"))
		conn.Close()
	}
	if err != nil {
		t.Skipf("multicast send is not available on this host: %v", err)
	}

	app := NewAppContext(strings.NewReader(""), io.Discard)
	app.Source = fakeSource{hostErr: &net.DNSError{Err: "no such host", Name: "myhost", IsNotFound: true}}

	args := append([]string{"send", "-n", "Alice", "-m", "hi"}, transportArgs(cfg)...)
	assert.NoError(t, runCLI(context.Background(), app, args...))
}

func TestChatCommand_SendsInputLines(t *testing.T) {
	setEnv(t)
	cfg := broadcastConfig(freePort(t))
	lines := listenOn(t, cfg)

	in := strings.NewReader("hello\n\nsecond line\n/quit\nnot sent\n")
	app := NewAppContext(in, io.Discard)
	args := append([]string{"chat", "-n", "Alice", "--no-history"}, transportArgs(cfg)...)

	require.NoError(t, runCLI(context.Background(), app, args...))

	expectLine(t, lines, "Alice: hello")
	expectLine(t, lines, "Alice: second line")
	select {
	case got := <-lines:
		t.Fatalf("unexpected line %q", got)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestListenCommand_PrintsAndRecords(t *testing.T) {
	setEnv(t)
	cfg := broadcastConfig(freePort(t))
	historyPath := filepath.Join(t.TempDir(), "history.db")

	out := &syncBuffer{}
	app := NewAppContext(strings.NewReader(""), out)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		args := append([]string{"listen", "--history", historyPath}, transportArgs(cfg)...)
		done <- runCLI(ctx, app, args...)
	}()

	sender, err := communicator.New(cfg, communicator.Funcs{}, discardLogger())
	require.NoError(t, err)

	// the listener starts asynchronously, resend until the first line shows up
	require.Eventually(t, func() bool {
		sender.Send("Bob", "ping")
		return strings.Contains(out.String(), "Bob: ping")
	}, waitTimeout, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(waitTimeout):
		t.Fatal("listen did not stop on cancel")
	}

	store, err := history.Open(history.Config{Path: historyPath})
	require.NoError(t, err)
	defer store.Close()

	records, err := store.List(context.Background(), 0)
	require.NoError(t, err)
	require.NotEmpty(t, records)
	assert.Equal(t, "Bob: ping", records[0].Text)
}

func TestHistoryCommand(t *testing.T) {
	setEnv(t)
	historyPath := filepath.Join(t.TempDir(), "history.db")

	store, err := history.Open(history.Config{Path: historyPath})
	require.NoError(t, err)
	for _, text := range []string{"Alice: one", "Bob: two", "Alice: three"} {
		_, err := store.Append(context.Background(), text)
		require.NoError(t, err)
	}
	require.NoError(t, store.Close())

	out := &syncBuffer{}
	app := NewAppContext(strings.NewReader(""), out)
	require.NoError(t, runCLI(context.Background(), app, "history", "--history", historyPath, "-l", "2"))

	printed := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, printed, 2)
	assert.True(t, strings.HasSuffix(printed[0], "] Bob: two"))
	assert.True(t, strings.HasSuffix(printed[1], "] Alice: three"))

	require.NoError(t, runCLI(context.Background(), app, "history", "--history", historyPath, "--clear"))

	out = &syncBuffer{}
	app.Out = out
	require.NoError(t, runCLI(context.Background(), app, "history", "--history", historyPath))
	assert.Empty(t, out.String())
}

func TestInterfacesCommand(t *testing.T) {
	setEnv(t)
	_, lan, err := net.ParseCIDR("192.168.1.10/24")
	require.NoError(t, err)
	lan.IP = net.ParseIP("192.168.1.10")

	tests := []struct {
		name     string
		host     net.IP
		expected string
	}{
		{name: "Host address found", host: net.ParseIP("192.168.1.10"), expected: "local host address is on: eth0"},
		{name: "Host address missing", host: net.ParseIP("127.0.1.1"), expected: "default \"\" is used"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &syncBuffer{}
			app := NewAppContext(strings.NewReader(""), out)
			app.Source = fakeSource{
				ifaces: []net.Interface{{Index: 2, Name: "eth0"}},
				addrs:  map[string][]net.Addr{"eth0": {lan}},
				host:   []net.IP{tt.host},
			}

			require.NoError(t, runCLI(context.Background(), app, "interfaces"))
			assert.Contains(t, out.String(), "eth0")
			assert.Contains(t, out.String(), tt.expected)
		})
	}
}
