package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AlchemistMonkey02/Geotree-server/internal/geo"
	"github.com/AlchemistMonkey02/Geotree-server/internal/landimport"
)

var (
	importLandFile        string
	importLandUser        string
	importLandConcurrency int
	importLandMapping     = landimport.DefaultMapping()
)

var importLandCmd = &cobra.Command{
	Use:   "import-land",
	Short: "Import land ownership parcels from a shapefile",
	Long:  "Reads polygon parcels from a shapefile and creates one land ownership record per valid parcel.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("import"); err != nil {
			return err
		}
		if importLandFile == "" {
			return eris.New("import-land: --file is required")
		}

		features, skipped, err := geo.ReadPolygons(importLandFile)
		if err != nil {
			return eris.Wrap(err, "import-land")
		}
		zap.L().Info("read shapefile",
			zap.String("file", importLandFile),
			zap.Int("parcels", len(features)),
			zap.Int("skipped", skipped),
		)

		st, err := connectStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		res, err := landimport.Import(ctx, st, features, importLandMapping, importLandUser, importLandConcurrency)
		if err != nil {
			return eris.Wrap(err, "import-land")
		}
		if res.Failed > 0 {
			return eris.Errorf("import-land: %d of %d parcels failed to save", res.Failed, len(features))
		}
		return nil
	},
}

func init() {
	f := importLandCmd.Flags()
	f.StringVar(&importLandFile, "file", "", "path to the .shp file")
	f.StringVar(&importLandUser, "user", "import", "user id recorded as creator")
	f.IntVar(&importLandConcurrency, "concurrency", 4, "parallel inserts")
	f.StringVar(&importLandMapping.OwnerField, "owner-field", importLandMapping.OwnerField, "attribute holding the owner name")
	f.StringVar(&importLandMapping.TypeField, "type-field", importLandMapping.TypeField, "attribute holding the ownership type")
	f.StringVar(&importLandMapping.AreaField, "area-field", importLandMapping.AreaField, "attribute holding the land area")
	f.StringVar(&importLandMapping.UseField, "use-field", importLandMapping.UseField, "attribute holding the land use type")
	f.StringVar(&importLandMapping.DefaultType, "default-type", importLandMapping.DefaultType, "ownership type when the attribute is empty")
	rootCmd.AddCommand(importLandCmd)
}
