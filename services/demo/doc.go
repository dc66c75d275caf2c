// Command demo runs a complete local auction house deployment for testing
// and development.
//
// The demo orchestrator starts all components in a single process:
//   - An in-memory asset registry served over HTTP
//   - The auction house engine with its HTTP API and event stream
//   - Multiple sellers whose assets are minted and escrowed
//   - Multiple bidders that compete over each auction
//
// The engine runs on an orchestrator-controlled clock, so the demo can step
// through the full auction lifecycle (creation, bidding, anti-snipe
// extension, settlement) in seconds instead of days.
//
// # Usage
//
//	go run ./services/demo [flags]
//
// # Flags
//
//	--bidders  Number of competing bidders (default: 4)
//	--assets   Number of assets, one auction each (default: 3)
//	--rounds   Bidding rounds per auction (default: 5)
//	--port     Base port for services (default: 8000)
package main
