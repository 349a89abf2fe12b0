package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"persistentstore/internal/app"
	"persistentstore/pkg/domain"
)

// watch: follow changes other processes make to KEY until interrupted.
func watchCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "watch KEY",
		Short: "Print changes made to KEY by other processes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := st.open()
			if err != nil {
				return err
			}
			su, ok := w.Storage.(domain.SelfUpdateStorage[string])
			if !ok {
				return fmt.Errorf("backend %s does not report external changes", w.Config.Storage.Backend)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			key := args[0]
			p := &printer{out: cmd.OutOrStdout(), w: w}
			remove := su.AddListener(key, p.change)
			defer remove()

			if raw, ok := su.GetValue(key); ok {
				p.change(domain.Change[string]{Key: key, Value: raw})
			}
			<-ctx.Done()
			return nil
		},
	}
}

type printer struct {
	mu  sync.Mutex
	out io.Writer
	w   *app.Wire
}

func (p *printer) change(c domain.Change[string]) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c.Deleted {
		fmt.Fprintf(p.out, "%s deleted\n", c.Key)
		return
	}
	var v any
	if err := p.w.Persister.Serializer().Deserialize(c.Value, &v); err != nil {
		p.w.Logger.Warn("watch: undecodable value", "key", c.Key, "error", err)
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		p.w.Logger.Warn("watch: encode value", "key", c.Key, "error", err)
		return
	}
	fmt.Fprintf(p.out, "%s = %s\n", c.Key, b)
}
