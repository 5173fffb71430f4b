// Package energyflow implements an energy-flow reconciliation service.
//
// # Architecture
//
// The service is structured into several key packages:
//   - api: Upstream statistics collector
//   - config: YAML and environment configuration
//   - database: TimescaleDB storage of cumulative meter statistics
//   - engine: Memoized FlowRecord computation and active-period tracking
//   - flow: Delta extraction, totals, flow balancing and carbon adjustment
//   - grpc: gRPC service implementation
//   - httpapi: HTTP/JSON gateway and exports
//   - models: Shared data structures
//   - publish: MQTT and Kafka sinks for tracked FlowRecords
//   - report: Spreadsheet and PDF rendering
//   - scheduler: Background collection and refresh
//   - sources: Source configuration and resolution
//
// Key Features
//
//   - Reconciliation:
//     Per-period totals for grid, solar, battery and gas are split into
//     directional flows (solar to home, battery to grid, grid to home and
//     so on) that sum back to the measured totals.
//
//   - Periods:
//     Hour, day, week, month and year granularity. The last selected
//     period always wins, even when earlier fetches finish later.
//
//   - Performance:
//     Uses TimescaleDB time_bucket() reads and memoizes FlowRecords per
//     source configuration version.
//
// Example Usage
//
//	client := server.NewFlowClient(conn)
//	resp, err := client.GetFlow(ctx, &server.FlowRequest{
//	    Start:       timestamppb.New(start),
//	    End:         timestamppb.New(end),
//	    Granularity: "day",
//	})
//
// For more information about specific packages, see their respective
// documentation.
package energyflow
