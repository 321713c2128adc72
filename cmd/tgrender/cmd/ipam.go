package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opsfactor/tgrender/internal/ipam"
)

var ipamFile string

var ipamCmd = &cobra.Command{
	Use:       "ipam {validate|available|next} [environment]",
	Short:     "Validate and inspect the static IP allocation file",
	Args:      cobra.RangeArgs(1, 2),
	ValidArgs: []string{"validate", "available", "next"},
	Long: `Work with the ip-allocation file that tracks CIDR assignments across
environments.

  validate   check for overlapping allocations and misaligned CIDR boundaries
  available  list reserved environments and free environment blocks
  next       suggest the next cluster allocation for an environment`,
	RunE: runIpam,
}

func init() {
	rootCmd.AddCommand(ipamCmd)

	ipamCmd.Flags().StringVar(&ipamFile, "file", "ip-allocation.yaml", "path to the allocation file")
}

func runIpam(_ *cobra.Command, args []string) error {
	checker, err := ipam.Load(ipamFile)
	if err != nil {
		return err
	}

	switch args[0] {
	case "validate":
		return ipamValidate(checker)
	case "available":
		return ipamAvailable(checker)
	case "next":
		env := "dp-dev-01"
		if len(args) > 1 {
			env = args[1]
		}
		return ipamNext(checker, env)
	}
	return fmt.Errorf("unknown ipam action: %s", args[0])
}

func ipamValidate(checker *ipam.Checker) error {
	fmt.Printf("Validating %d IP allocations...\n\n", len(checker.Networks))

	valid := true
	conflicts := checker.Conflicts()
	if len(conflicts) > 0 {
		valid = false
		fmt.Println("Found IP conflicts:")
		for _, c := range conflicts {
			fmt.Println("  Conflict between:")
			fmt.Printf("    - %s: %s\n", c.A.Name, c.A.Prefix)
			fmt.Printf("    - %s: %s\n", c.B.Name, c.B.Prefix)
		}
	} else {
		fmt.Println("No IP conflicts found")
	}

	fmt.Println("\nChecking CIDR boundaries...")
	issues := checker.BoundaryIssues()
	if len(issues) > 0 {
		valid = false
		fmt.Println("CIDR boundary issues found:")
		for _, issue := range issues {
			fmt.Printf("  - %s\n", issue)
		}
	} else {
		fmt.Println("All CIDR boundaries are valid")
	}

	if !valid {
		return fmt.Errorf("IP allocation validation failed")
	}
	return nil
}

func ipamAvailable(checker *ipam.Checker) error {
	file := checker.File
	fmt.Printf("Development block: %s\n", file.Development.Block)
	fmt.Printf("Perimeter block:   %s\n", file.Perimeter.Block)
	fmt.Printf("Production block:  %s\n", file.Production.Block)

	reserved := checker.ReservedEnvironments()
	if len(reserved) > 0 {
		fmt.Println("\nReserved development environments (ready for use):")
		for _, env := range reserved {
			fmt.Printf("  - %s: %s (%d IPs)\n", env.Name, env.Block, env.IPs)
		}
	}

	fmt.Println("\nNext available environment blocks:")
	for _, block := range checker.NextEnvironmentBlocks(5) {
		fmt.Printf("  - %s: %s\n", block.Name, block.Block)
	}
	return nil
}

func ipamNext(checker *ipam.Checker, env string) error {
	suggestion, err := checker.SuggestNextCluster(env)
	if err != nil {
		return err
	}
	fmt.Printf("Next cluster for %s: %s\n", env, suggestion.Cluster)
	if suggestion.PodRange != nil {
		fmt.Printf("  Pod range:     %s (%d IPs)\n", suggestion.PodRange.CIDR, suggestion.PodRange.Size)
	} else {
		fmt.Println("  Pod range:     not pre-allocated")
	}
	if suggestion.ServiceRange != nil {
		fmt.Printf("  Service range: %s (%d IPs)\n", suggestion.ServiceRange.CIDR, suggestion.ServiceRange.Size)
	} else {
		fmt.Println("  Service range: not pre-allocated")
	}
	if suggestion.PodRange == nil {
		fmt.Println("\nNo more pre-allocated cluster ranges; define additional ranges in the allocation file.")
	}
	return nil
}
