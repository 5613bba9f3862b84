package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/YangQing-Lin/hooky-cli/internal/i18n"
	"github.com/YangQing-Lin/hooky-cli/internal/lock"
	"github.com/YangQing-Lin/hooky-cli/internal/metrics"
	"github.com/YangQing-Lin/hooky-cli/internal/server"
)

var (
	serveAddr    string
	serveService string
	serveForce   bool
)

// program 实现 kardianos/service 接口，Start 不阻塞
type program struct {
	a      *app
	addr   string
	cancel context.CancelFunc
	done   chan error
}

func (p *program) Start(s service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)
	go func() {
		p.done <- runServe(ctx, p.a, p.addr, nil)
	}()
	return nil
}

func (p *program) Stop(s service.Service) error {
	p.a.log.Info("stopping service")
	p.cancel()
	select {
	case err := <-p.done:
		return err
	case <-time.After(server.ShutdownTimeout + time.Second):
		return errors.New("service did not stop in time")
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local webhook daemon",
	Long: `Runs an HTTP daemon for browser and script integrations:

  GET  /healthz
  POST /execute         {"config": {...}, "context": {...}}
  POST /quicksend       {"tab": {...}, "page": {...}}
  GET  /menu
  POST /menu/{itemID}   {"tab": {...}}
  GET  /metrics

The menu is rebuilt whenever the store changes. With --service the daemon
can be installed as a system service: install, uninstall, start, stop, restart.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp(cmd.Context())
		if err != nil {
			return err
		}
		addr := serveAddr
		if addr == "" {
			addr = a.settings.Get().Serve.Addr
		}

		if serveService == "" && service.Interactive() {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, a, addr, func() {
				fmt.Fprintln(cmd.OutOrStdout(), i18n.T("serve_listening", addr))
			})
		}

		svcConfig := &service.Config{
			Name:        "hooky",
			DisplayName: "Hooky webhook daemon",
			Description: "Sends page context to configured webhooks",
			Arguments:   []string{"serve", "--dir", a.settings.Dir(), "--addr", addr},
		}
		s, err := service.New(&program{a: a, addr: addr}, svcConfig)
		if err != nil {
			return fmt.Errorf("create service: %w", err)
		}
		if serveService != "" {
			if err := service.Control(s, serveService); err != nil {
				return fmt.Errorf("service %s: %w", serveService, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ service %s\n", serveService)
			return nil
		}
		return s.Run()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default serve.addr)")
	serveCmd.Flags().StringVar(&serveService, "service", "", "service action: install, uninstall, start, stop, restart")
	serveCmd.Flags().BoolVar(&serveForce, "force", false, "take over the daemon lock even if another instance holds it")
}

// runServe 持有 serve 锁运行守护进程直到 ctx 结束
func runServe(ctx context.Context, a *app, addr string, ready func()) error {
	l := lock.New(a.settings.Dir(), "serve")
	acquire := l.Acquire
	if serveForce {
		acquire = l.ForceAcquire
	}
	if err := acquire(); err != nil {
		if errors.Is(err, lock.ErrHeld) {
			return fmt.Errorf("%s: %w", i18n.T("serve_running"), err)
		}
		return err
	}
	defer l.Release()
	go l.KeepAlive(ctx, lock.KeepAliveInterval)

	m := metrics.New()
	srv := server.New(a.store, a.dispatcher(m),
		server.WithExtractor(a.extractor(false)),
		server.WithMetrics(m),
		server.WithLogger(a.log.Named("server")),
	)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	if ready != nil {
		ready()
	}
	return srv.Serve(ctx, ln)
}
