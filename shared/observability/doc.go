/*
Package observability gives the pet transfer agents structured logs and
metrics.

An agent runs one cycle and exits. Logs go to stdout as JSON lines for
Loki to scrape from the container runtime. Metrics accumulate in a registry
owned by the provider and are pushed to a Pushgateway from Close, because
nothing would be left to scrape.

	provider := observability.NewProvider(&observability.Config{
	    ServiceName:    "pet-ingestor",
	    Environment:    "production",
	    PushgatewayURL: "http://pushgateway:9091",
	})
	defer provider.Close()

	ctx = observability.WithCycleID(ctx, msg.CycleID)
	provider.Logger("poller").Info(ctx, "Files polled", observability.Fields{"count": n})
	provider.Metrics("transfer").RecordItems("sync", "moved", n)

Log entries pick up cycle_id, job_execution_id and item from the context.

All components share these families, labelled by component:

	petsync_operations_total{operation,status}
	petsync_errors_total{operation,reason}
	petsync_operation_duration_seconds{operation}
	petsync_file_size_bytes{kind}
	petsync_items_total{operation,outcome}
	petsync_operations_in_flight{operation}
*/
package observability
