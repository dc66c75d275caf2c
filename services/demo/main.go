package main

import (
	"flag"
	"fmt"
	"os"
)

func main() {
	var (
		numBidders = flag.Int("bidders", 4, "Number of competing bidders")
		numAssets  = flag.Int("assets", 3, "Number of assets, one auction each")
		numRounds  = flag.Int("rounds", 5, "Bidding rounds per auction")
		basePort   = flag.Int("port", 8000, "Base port for services")
	)
	flag.Parse()

	config := &OrchestratorConfig{
		NumBidders: *numBidders,
		NumAssets:  *numAssets,
		NumRounds:  *numRounds,
		BasePort:   *basePort,
	}

	orchestrator := NewOrchestrator(config)

	if err := orchestrator.Deploy(); err != nil {
		fmt.Printf("Deployment failed: %v\n", err)
		os.Exit(1)
	}
	defer orchestrator.Shutdown()

	if err := orchestrator.Run(); err != nil {
		fmt.Printf("Demo run failed: %v\n", err)
		os.Exit(1)
	}
}
