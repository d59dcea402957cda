package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/sales-insights/internal/domain/export"
)

var (
	pcaFlags      inputFlags
	pcaCols       []string
	pcaComponents int
	pcaOut        string

	kmeansFlags inputFlags
	kmeansCols  []string
	kmeansK     int
	kmeansOut   string
)

var pcaCmd = &cobra.Command{
	Use:   "pca <file>",
	Short: "Project standardized numeric columns onto their principal components",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := pcaFlags.input(args[0])
		if err != nil {
			return err
		}
		components := pcaComponents
		if !cmd.Flags().Changed("components") {
			components = cfg.Analysis.DefaultComponents
		}

		res, err := newAnalysisService().PCA(cmd.Context(), in, pcaCols, components)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		title(out, "Varianza explicada")
		table := newTable(out, "Componente", "Varianza", "Acumulada")
		cumulative := 0.0
		for i, v := range res.Explained {
			cumulative += v
			table.Append([]string{"PC" + strconv.Itoa(i+1), percent(v), percent(cumulative)})
		}
		table.Render()

		title(out, "Cargas")
		header := append([]string{"Componente"}, res.Columns...)
		table = newTable(out, header...)
		for i, row := range res.Loadings {
			cells := []string{"PC" + strconv.Itoa(i+1)}
			for _, v := range row {
				cells = append(cells, float(v))
			}
			table.Append(cells)
		}
		table.Render()

		if pcaOut != "" {
			return writeTable(pcaOut, res)
		}
		return nil
	},
}

var kmeansCmd = &cobra.Command{
	Use:   "kmeans <file>",
	Short: "Cluster standardized numeric columns with K-Means",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := kmeansFlags.input(args[0])
		if err != nil {
			return err
		}
		k := kmeansK
		if !cmd.Flags().Changed("k") {
			k = cfg.Analysis.DefaultK
		}

		res, err := newAnalysisService().KMeans(cmd.Context(), in, kmeansCols, k)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		title(out, fmt.Sprintf("K-Means (k=%d)", k))
		table := newTable(out, "Cluster", "Filas")
		for i, n := range res.Sizes {
			table.Append([]string{strconv.Itoa(i), strconv.Itoa(n)})
		}
		table.Render()
		okColor.Fprintf(out, "Inercia: %s  Silueta: %s\n", float(res.Inertia), float(res.Silhouette))

		title(out, "Perfil por cluster")
		renderRecords(out, res.Profile.Records())

		if kmeansOut != "" {
			return writeTable(kmeansOut, res.Profile)
		}
		return nil
	},
}

func writeTable(path string, t export.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := export.WriteCSV(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func init() {
	pcaFlags.register(pcaCmd)
	pcaCmd.Flags().StringSliceVar(&pcaCols, "cols", nil, "columns to use (default: every numeric sales column present)")
	pcaCmd.Flags().IntVar(&pcaComponents, "components", 2, "number of principal components")
	pcaCmd.Flags().StringVar(&pcaOut, "out", "", "write the projected components to this CSV file")

	kmeansFlags.register(kmeansCmd)
	kmeansCmd.Flags().StringSliceVar(&kmeansCols, "cols", nil, "columns to use (default: every numeric sales column present)")
	kmeansCmd.Flags().IntVar(&kmeansK, "k", 3, "number of clusters")
	kmeansCmd.Flags().StringVar(&kmeansOut, "out", "", "write the cluster profile to this CSV file")
}
