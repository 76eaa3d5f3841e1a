package cmd

import (
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/matrixise/xpr-wallet/internal/network"
)

var networkCmd = &cobra.Command{
	Use:   "network [mainnet|testnet]",
	Short: "Show or switch the selected network",
	Long: `Without argument, print the selected network. With a network name, switch
to it and remember the choice in the state file. Only the network name is
persisted.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{string(network.Mainnet), string(network.Testnet)},
	RunE:      runNetwork,
}

func init() {
	rootCmd.AddCommand(networkCmd)
}

func runNetwork(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	if networkFlag != "" {
		return errors.New("--network does not apply here, pass the network as argument")
	}

	a, err := newApp()
	if err != nil {
		return err
	}

	if len(args) == 1 {
		if err := a.wallet.SetNetwork(ctx, network.Name(args[0])); err != nil {
			return err
		}
	}

	net := a.network()
	return render(net, func(w io.Writer) {
		row(w, "NETWORK", net.Name)
		row(w, "CHAIN ID", net.ChainID)
		for _, ep := range net.Endpoints {
			row(w, "ENDPOINT", ep)
		}
		row(w, "HYPERION", net.Hyperion)
		row(w, "LIGHT API", net.LightAPI)
		row(w, "ATOMIC API", net.AtomicAPI)
		row(w, "EXPLORER", net.Explorer)
	})
}
