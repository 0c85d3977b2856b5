/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/


package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/CloudVE/cloudbridge-sub001/internal/inventory"
	"github.com/CloudVE/cloudbridge-sub001/internal/obs/health"
	"github.com/CloudVE/cloudbridge-sub001/internal/obs/logging"
	"github.com/CloudVE/cloudbridge-sub001/internal/obs/metrics"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
	"github.com/CloudVE/cloudbridge-sub001/internal/version"
)

func newInventoryCommand(a *app) *cobra.Command {
	var (
		watch    bool
		interval time.Duration
		listen   string
		pageSize int
	)
	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "Count the resources of every service",
		Long: `Walk every listing of the provider page by page and print the number of
resources per kind. With --watch the inventory is refreshed every
--interval and exported on /metrics, with provider health on /healthz.`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "keep refreshing and serve metrics")
	cmd.Flags().DurationVar(&interval, "interval", time.Minute, "refresh interval with --watch")
	cmd.Flags().StringVar(&listen, "listen", ":9090", "metrics and health address with --watch")
	cmd.Flags().IntVar(&pageSize, "page-size", inventory.DefaultPageSize, "page size used while walking listings")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if watch {
			return a.watchInventory(cmd.Context(), interval, listen, pageSize)
		}
		ctx, cancel := a.context(cmd)
		defer cancel()
		p, err := a.client(ctx)
		if err != nil {
			return err
		}
		report, err := inventory.NewCollector(p, pageSize).Collect(ctx)
		if renderErr := a.renderReport(report); renderErr != nil {
			return renderErr
		}
		if err != nil {
			return fmt.Errorf("inventory incomplete: %w", err)
		}
		return nil
	}
	return cmd
}

func (a *app) renderReport(report *inventory.Report) error {
	if done, err := a.encode(report); done {
		return err
	}
	rows := make([][]string, 0, len(report.Counts))
	for _, c := range report.Counts {
		rows = append(rows, []string{string(c.Kind), itoa(c.Count), c.Error})
	}
	if err := a.table([]string{"KIND", "COUNT", "ERROR"}, rows); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s %s: %d resources\n", report.Provider, report.Region, report.Total())
	return nil
}

// inventoryRouter serves the Prometheus registry and the health checks
func inventoryRouter(p contracts.Provider, collector *inventory.Collector) *mux.Router {
	checker := health.NewHealthChecker(30 * time.Second)
	checker.RegisterCheck("provider", health.ProviderCheck(p))
	checker.RegisterCheck("inventory", health.FunctionCheck(func() error {
		if collector.Last() == nil {
			return errors.New("no inventory collected yet")
		}
		return nil
	}))

	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)
	checker.Register(router)
	return router
}

func (a *app) watchInventory(ctx context.Context, interval time.Duration, listen string, pageSize int) error {
	p, err := a.client(ctx)
	if err != nil {
		return err
	}
	log := logging.FromContext(logging.WithProvider(ctx, string(p.Type()), p.Region()))
	metrics.SetupMetrics(version.Version, version.GitSHA, metrics.ComponentInventory)

	collector := inventory.NewCollector(p, pageSize)
	httpServer := &http.Server{
		Addr:              listen,
		Handler:           inventoryRouter(p, collector),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting inventory server", "address", listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("inventory server error: %w", err)
		}
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		collector.Run(runCtx, interval, func(report *inventory.Report, err error) {
			if err != nil {
				log.Error(err, "Inventory incomplete")
			}
			log.Info("Inventory refreshed", "total", report.Total())
		})
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errChan:
	}
	cancel()
	<-done

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return serveErr
}
