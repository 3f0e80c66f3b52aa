package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/flemzord/qqrelay/pkg/app"
	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

// program adapts app.Run to the service manager's Start/Stop contract.
type program struct {
	params app.RunParams

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan error
}

// Start must not block: the service manager waits for it to return.
func (p *program) Start(service.Service) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return errors.New("service already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)
	go func() {
		p.done <- app.Run(ctx, p.params)
	}()
	return nil
}

func (p *program) Stop(service.Service) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	return <-done
}

func serviceConfig(params app.RunParams) *service.Config {
	args := []string{"service", "run"}
	if params.ConfigPath != "" {
		args = append(args, "--config", params.ConfigPath)
	}
	if params.DataDir != "" {
		args = append(args, "--data-dir", params.DataDir)
	}
	if params.LogLevel != "" {
		args = append(args, "--log-level", params.LogLevel)
	}
	return &service.Config{
		Name:        "qqrelay",
		DisplayName: "qqrelay",
		Description: "Relays QQ messages from NapCat to an agent over HTTP.",
		Arguments:   args,
		Option: service.KeyValue{
			"Restart": "on-failure",
		},
	}
}

func newService(params app.RunParams) (service.Service, *program, error) {
	prg := &program{params: params}
	svc, err := service.New(prg, serviceConfig(params))
	if err != nil {
		return nil, nil, fmt.Errorf("service: %w", err)
	}
	return svc, prg, nil
}

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage qqrelay as a system service",
	}

	run := &cobra.Command{
		Use:    "run",
		Short:  "Run under the service manager",
		Hidden: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, _, err := newService(runParams(cmd))
			if err != nil {
				return err
			}
			return svc.Run()
		},
	}
	addRunFlags(run)
	cmd.AddCommand(run)

	for _, action := range service.ControlAction {
		sub := &cobra.Command{
			Use:   action,
			Short: fmt.Sprintf("%s the qqrelay service", action),
			RunE: func(cmd *cobra.Command, _ []string) error {
				svc, _, err := newService(runParams(cmd))
				if err != nil {
					return err
				}
				if err := service.Control(svc, action); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "service %s: ok\n", action)
				return nil
			},
		}
		addRunFlags(sub)
		cmd.AddCommand(sub)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the qqrelay service status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, _, err := newService(app.RunParams{})
			if err != nil {
				return err
			}
			status, err := svc.Status()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), statusString(status))
			return nil
		},
	})
	return cmd
}

func statusString(s service.Status) string {
	switch s {
	case service.StatusRunning:
		return "running"
	case service.StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
