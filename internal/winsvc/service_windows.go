//go:build windows

package winsvc

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"

	"github.com/go-tangra/go-tangra-assets/internal/platform"
)

// stopTimeout bounds how long a stop request waits for the agent.
const stopTimeout = 30 * time.Second

// IsWindowsService reports whether the process was started by the SCM.
func IsWindowsService() bool {
	ok, err := svc.IsWindowsService()
	return err == nil && ok
}

type handler struct {
	name string
	run  func(ctx context.Context) error
}

func (h *handler) Execute(_ []string, req <-chan svc.ChangeRequest, status chan<- svc.Status) (bool, uint32) {
	status <- svc.Status{State: svc.StartPending}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- h.run(ctx) }()

	status <- svc.Status{State: svc.Running, Accepts: svc.AcceptStop | svc.AcceptShutdown}

	for {
		select {
		case err := <-done:
			status <- svc.Status{State: svc.StopPending}
			if err != nil {
				log.Printf("Service %s stopped with error: %v", h.name, err)
				return false, 1
			}
			return false, 0

		case cr := <-req:
			switch cr.Cmd {
			case svc.Interrogate:
				status <- cr.CurrentStatus
			case svc.Stop, svc.Shutdown:
				status <- svc.Status{State: svc.StopPending}
				cancel()
				select {
				case <-done:
				case <-time.After(stopTimeout):
					log.Printf("Service %s did not stop within %s", h.name, stopTimeout)
				}
				return false, 0
			}
		}
	}
}

// Run blocks under the SCM until the service is stopped. run's context is
// cancelled on stop or shutdown.
func (s Service) Run(run func(ctx context.Context) error) error {
	return svc.Run(s.Name, &handler{name: s.Name, run: run})
}

// Install registers the service to start automatically with exePath and
// args, restarting it after crashes, and registers the event source.
func (s Service) Install(exePath string, args []string) error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect to SCM: %w", err)
	}
	defer m.Disconnect()

	if existing, err := m.OpenService(s.Name); err == nil {
		existing.Close()
		return fmt.Errorf("service %s already exists", s.Name)
	}

	created, err := m.CreateService(s.Name, exePath, mgr.Config{
		DisplayName: s.DisplayName,
		Description: s.Description,
		StartType:   mgr.StartAutomatic,
	}, args...)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	defer created.Close()

	if err := created.SetRecoveryActions([]mgr.RecoveryAction{
		{Type: mgr.ServiceRestart, Delay: time.Minute},
		{Type: mgr.ServiceRestart, Delay: 5 * time.Minute},
		{Type: mgr.NoAction},
	}, uint32((24 * time.Hour).Seconds())); err != nil {
		log.Printf("Warning: could not set recovery actions: %v", err)
	}

	if err := platform.InstallEventSource(s.Name); err != nil {
		log.Printf("Warning: %v", err)
	}
	return nil
}

// Uninstall stops and removes the service and its event source.
func (s Service) Uninstall() error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connect to SCM: %w", err)
	}
	defer m.Disconnect()

	service, err := m.OpenService(s.Name)
	if err != nil {
		return fmt.Errorf("open service %s: %w", s.Name, err)
	}
	defer service.Close()

	if st, err := service.Query(); err == nil && st.State != svc.Stopped {
		_, _ = service.Control(svc.Stop)
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			time.Sleep(500 * time.Millisecond)
			if st, err = service.Query(); err != nil || st.State == svc.Stopped {
				break
			}
		}
	}

	if err := service.Delete(); err != nil {
		return fmt.Errorf("delete service: %w", err)
	}
	_ = platform.RemoveEventSource(s.Name)
	return nil
}
