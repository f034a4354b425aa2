package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/airbusgeo/stac-quickvrt/catalog"
	"github.com/airbusgeo/stac-quickvrt/catalog/entities"
	interfacecatalog "github.com/airbusgeo/stac-quickvrt/interface/catalog"
	"github.com/airbusgeo/stac-quickvrt/interface/catalog/planetary"
	"github.com/airbusgeo/stac-quickvrt/interface/catalog/stac"
	"github.com/airbusgeo/stac-quickvrt/interface/raster"
	"github.com/airbusgeo/stac-quickvrt/interface/raster/gdal"
	"github.com/airbusgeo/stac-quickvrt/interface/raster/gdalexec"
	"github.com/airbusgeo/stac-quickvrt/service"
	"github.com/airbusgeo/stac-quickvrt/service/log"
	"github.com/airbusgeo/stac-quickvrt/service/metrics"
)

type config struct {
	// Search
	Satellite   string
	Collection  string
	Bbox        string
	Extent      string
	CRS         string
	StartDate   string
	EndDate     string
	SearchRetry int

	// Load
	Index       int
	Composition string
	PersistURI  string
	WorkingDir  string

	// Integrations
	StacURL     string
	Signer      string
	Engine      string
	HTTPTimeout time.Duration

	// Server
	Serve   bool
	AppPort string
	Token   string
}

func newAppConfig() (*config, error) {
	config := config{}
	// Search
	flag.StringVar(&config.Satellite, "satellite", catalog.LabelSentinel2, "satellite: "+strings.Join(catalog.Labels(), ", "))
	flag.StringVar(&config.Collection, "collection", "", "STAC collection (default: the collection of the satellite)")
	flag.StringVar(&config.Bbox, "bbox", "", "search bounding box in WGS-84: minLon,minLat,maxLon,maxLat")
	flag.StringVar(&config.Extent, "extent", "", "search extent in -crs (instead of -bbox): xmin,ymin,xmax,ymax")
	flag.StringVar(&config.CRS, "crs", "EPSG:4326", "crs of -extent")
	flag.StringVar(&config.StartDate, "start", "", "start date (YYYY-MM-DD, included)")
	flag.StringVar(&config.EndDate, "end", "", "end date (YYYY-MM-DD, included)")
	flag.IntVar(&config.SearchRetry, "search-retry", 1, "number of retries of a search failing on a transient error")

	// Load
	flag.IntVar(&config.Index, "index", -1, "index of the scene to load in the result table (default: list only)")
	flag.StringVar(&config.Composition, "composition", "True Color", "composition of the scene to load")
	flag.StringVar(&config.PersistURI, "persist", "", "copy the composites to this uri (local dir, gs://bucket/prefix, s3://bucket/prefix or a .vrt file)")
	flag.StringVar(&config.WorkingDir, "workdir", "", "working directory of the transient composites (default: temp dir)")

	// Integrations
	flag.StringVar(&config.StacURL, "stac-url", stac.PlanetaryComputerURL, "root url of the STAC API")
	flag.StringVar(&config.Signer, "signer", "planetary", "asset signer: planetary or none (public assets)")
	flag.StringVar(&config.Engine, "engine", "godal", "raster engine: godal or gdalbuildvrt")
	flag.DurationVar(&config.HTTPTimeout, "http-timeout", time.Minute, "timeout of the requests to the catalog and the signing service")

	// Server
	flag.BoolVar(&config.Serve, "serve", false, "start the http server instead of a one-shot search")
	flag.StringVar(&config.AppPort, "port", "8080", "port of the http server")
	flag.StringVar(&config.Token, "token", os.Getenv("QUICKVRT_TOKEN"), "bearer token required by the http server (optional)")
	flag.Parse()

	if !config.Serve {
		if config.StartDate == "" || config.EndDate == "" {
			return nil, fmt.Errorf("missing -start or -end config flag")
		}
		if config.Bbox == "" && config.Extent == "" {
			return nil, fmt.Errorf("missing -bbox or -extent config flag")
		}
	}
	if config.SearchRetry < 0 {
		return nil, fmt.Errorf("wrong -search-retry config flag")
	}
	return &config, nil
}

func main() {
	// secrets (PC_SDK_SUBSCRIPTION_KEY, QUICKVRT_TOKEN, cloud credentials) may be defined in a .env file
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatal("godotenv", zap.Error(err))
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	err := run(ctx)
	if err != nil {
		log.Fatal("error", zap.Error(err))
	}
}

func run(ctx context.Context) error {
	config, err := newAppConfig()
	if err != nil {
		return err
	}

	c, err := newCatalog(config)
	if err != nil {
		return err
	}
	if err := c.CheckIntegrations(); err != nil {
		return err
	}

	if config.Serve {
		return serve(ctx, c, config)
	}
	return oneShot(ctx, c, config)
}

func newCatalog(config *config) (*catalog.Catalog, error) {
	// streaming /vsicurl/ files must not list the remote directories
	if os.Getenv("GDAL_DISABLE_READDIR_ON_OPEN") == "" {
		os.Setenv("GDAL_DISABLE_READDIR_ON_OPEN", "EMPTY_DIR")
	}
	gdal.Register()

	httpClient := &http.Client{Timeout: config.HTTPTimeout}
	c := &catalog.Catalog{
		Provider:    stac.NewProvider(config.StacURL, httpClient),
		Transformer: gdal.Transformer{},
		Registrar:   gdal.Registrar{},
		WorkingDir:  config.WorkingDir,
		PersistURI:  config.PersistURI,
	}

	switch config.Signer {
	case "planetary":
		c.Signer = planetary.NewSigner(httpClient)
	case "none":
		c.Signer = interfacecatalog.PassThroughSigner{}
	default:
		return nil, fmt.Errorf("unknown signer: %s", config.Signer)
	}

	var engine raster.Engine
	switch config.Engine {
	case "godal":
		engine = gdal.Engine{}
	case "gdalbuildvrt":
		e := gdalexec.Engine{}
		if err := e.Available(); err != nil {
			return nil, err
		}
		engine = e
	default:
		return nil, fmt.Errorf("unknown raster engine: %s", config.Engine)
	}
	c.Engine = engine
	return c, nil
}

func parseFloats(s string) ([4]float64, error) {
	var v [4]float64
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return v, fmt.Errorf("expecting 4 comma-separated values, got %q", s)
	}
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return v, fmt.Errorf("parse %q: %w", s, err)
		}
		v[i] = f
	}
	return v, nil
}

func searchBbox(ctx context.Context, c *catalog.Catalog, config *config) (entities.BoundingBox, error) {
	if config.Bbox != "" {
		v, err := parseFloats(config.Bbox)
		if err != nil {
			return entities.BoundingBox{}, fmt.Errorf("-bbox: %w", err)
		}
		return entities.BoundingBox{MinLon: v[0], MinLat: v[1], MaxLon: v[2], MaxLat: v[3]}, nil
	}
	v, err := parseFloats(config.Extent)
	if err != nil {
		return entities.BoundingBox{}, fmt.Errorf("-extent: %w", err)
	}
	return c.GetBbox(ctx, entities.Rectangle{XMin: v[0], YMin: v[1], XMax: v[2], YMax: v[3]}, config.CRS)
}

func oneShot(ctx context.Context, c *catalog.Catalog, config *config) error {
	profile, err := c.SelectSatellite(config.Satellite)
	if err != nil {
		return err
	}
	bbox, err := searchBbox(ctx, c, config)
	if err != nil {
		return err
	}

	var result entities.SearchResult
	err = service.RetriableTemporary(ctx, func() error {
		var err error
		if result, err = c.ListScenes(ctx, config.Collection, bbox, config.StartDate, config.EndDate); err != nil {
			log.Logger(ctx).Warn("search failed", zap.Error(err))
		}
		return err
	}, 2*time.Second, config.SearchRetry+1)
	if err != nil {
		return err
	}

	printRows(os.Stdout, result.Rows())
	if len(result) == 0 {
		fmt.Fprintln(os.Stdout, "No scene found")
		return nil
	}
	if config.Index < 0 {
		fmt.Fprintf(os.Stdout, "Compositions of %s: %s\n", profile.Label, strings.Join(profile.CompositionNames(), ", "))
		return nil
	}

	artifact, err := c.LoadScene(ctx, config.Index, config.Composition)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "%s: %s (%d bands)\n", artifact.LayerName, artifact.OutputHandle, artifact.BandCount)
	if artifact.PersistedURI != "" {
		fmt.Fprintf(os.Stdout, "persisted to %s\n", artifact.PersistedURI)
	}
	return nil
}

func printRows(w *os.File, rows []entities.Row) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tDATE\tCLOUDS\tID")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.Index, r.Date, r.Clouds, r.ID)
	}
	tw.Flush()
}

func serve(ctx context.Context, c *catalog.Catalog, config *config) error {
	if config.Token != "" {
		bearerAuths = map[string]string{"default": config.Token}
	}

	router := mux.NewRouter()
	router.Use(metrics.Middleware)
	router.Handle("/metrics", metrics.Handler()).Methods("GET")
	api := router.PathPrefix("/").Subrouter()
	api.Use(BearerAuthenticate)
	c.AddHandler(api)

	headersOk := handlers.AllowedHeaders([]string{"*"})
	originsOk := handlers.AllowedOrigins([]string{"*"})
	methodsOk := handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"})
	s := http.Server{
		Addr:    ":" + config.AppPort,
		Handler: handlers.CombinedLoggingHandler(os.Stderr, handlers.CORS(originsOk, headersOk, methodsOk)(router)),
	}

	wg, ctx := errgroup.WithContext(ctx)
	wg.Go(func() error {
		log.Logger(ctx).Info("quickvrt server starts", zap.String("addr", s.Addr))
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("ListenAndServe: %w", err)
		}
		return nil
	})
	wg.Go(func() error {
		<-ctx.Done()
		sctx, cncl := context.WithTimeout(context.Background(), 30*time.Second)
		defer cncl()
		return s.Shutdown(sctx)
	})
	return wg.Wait()
}
