package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"persistentstore/internal/app"
)

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"backend":    "storage.backend",
	"dir":        "storage.dir",
	"bucket":     "storage.bucket",
	"key":        "encryption.key",
	"passphrase": "encryption.passphrase",
	"salt":       "encryption.salt",
	"kdf":        "encryption.kdf",
	"cipher":     "encryption.cipher",
	"serializer": "serializer",
	"log-level":  "log.level",
	"log-format": "log.format",
}

type state struct {
	configPath string
	stats      bool

	cfg    app.Config
	logger *slog.Logger
	wire   *app.Wire
}

// Execute runs the CLI with os.Args.
func Execute() error {
	return NewRoot(os.Stdout, os.Stderr).ExecuteContext(context.Background())
}

// NewRoot builds the command tree writing to out and errOut.
func NewRoot(out, errOut io.Writer) *cobra.Command {
	st := &state{}
	root := &cobra.Command{
		Use:          "persistctl",
		Short:        "Inspect and edit persisted values",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			overrides := map[string]any{}
			cmd.Flags().Visit(func(f *pflag.Flag) {
				if key, ok := flagKeys[f.Name]; ok {
					overrides[key] = f.Value.String()
				}
			})
			cfg, err := app.LoadConfig(st.configPath, overrides)
			if err != nil {
				return err
			}
			st.cfg = cfg
			st.logger = app.NewLogger(cfg.Log, errOut)
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if st.wire == nil {
				return nil
			}
			if st.stats {
				if err := printStats(cmd.OutOrStdout(), st.wire); err != nil {
					return err
				}
			}
			return st.wire.Close()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&st.configPath, "config", "", "YAML config file")
	pf.BoolVar(&st.stats, "stats", false, "print storage operation counters on exit")
	pf.String("backend", "", "storage backend: file, bolt, badger or memory")
	pf.String("dir", "", "data directory (default ~/.persistctl)")
	pf.String("bucket", "", "bolt bucket or badger key prefix")
	pf.String("key", "", "hex encryption key")
	pf.String("passphrase", "", "derive the encryption key from a passphrase")
	pf.String("salt", "", "hex salt used with --passphrase")
	pf.String("kdf", "", "key derivation: scrypt or argon2id")
	pf.String("cipher", "", "cipher: gcm or chacha")
	pf.String("serializer", "", "value encoding in storage: json or yaml")
	pf.String("log-level", "", "debug, info, warn or error")
	pf.String("log-format", "", "text or json")

	root.AddCommand(getCmd(st), setCmd(st), deleteCmd(st), watchCmd(st), keygenCmd(st))
	return root
}

// open builds the storage stack on first use.
func (st *state) open() (*app.Wire, error) {
	if st.wire != nil {
		return st.wire, nil
	}
	if st.cfg.Storage.Dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		st.cfg.Storage.Dir = filepath.Join(home, ".persistctl")
	}
	w, err := app.NewWire(st.cfg, st.logger)
	if err != nil {
		return nil, err
	}
	st.wire = w
	return w, nil
}

func printStats(out io.Writer, w *app.Wire) error {
	families, err := w.Metrics.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			lines = append(lines, counterLine(mf.GetName(), m))
		}
	}
	sort.Strings(lines)
	for _, l := range lines {
		fmt.Fprintln(out, l)
	}
	return nil
}

func counterLine(name string, m *dto.Metric) string {
	labels := make([]string, 0, len(m.GetLabel()))
	for _, l := range m.GetLabel() {
		labels = append(labels, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
	}
	return fmt.Sprintf("%s{%s} %g", name, strings.Join(labels, ","), m.GetCounter().GetValue())
}
