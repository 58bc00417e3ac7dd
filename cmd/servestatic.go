package cmd

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/spf13/cobra"
	"github.com/wegman-software/tilemaker-go/internal/logger"
)

var serveAddr string

var serveStaticCmd = &cobra.Command{
	Use:   "serve-static <tile-dir>",
	Short: "Serve a directory of rendered tiles over HTTP, for smoke-testing a render run",
	Long: `serve-static is a minimal /{z}/{x}/{y}.pbf file server over a directory
produced by 'render' with a plain directory output. It exists to smoke-test
a render run in a browser-based vector tile viewer, not as a production
tile server.`,
	Args: cobra.ExactArgs(1),
	Run:  runServeStatic,
}

func init() {
	rootCmd.AddCommand(serveStaticCmd)
	serveStaticCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Address to listen on")
}

func runServeStatic(cmd *cobra.Command, args []string) {
	log := logger.Get()
	root := args[0]

	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		exitWithError("tile directory does not exist", err)
	}

	http.HandleFunc("/", serveTile(root))

	log.Info("serving static tiles", zap.String("dir", root), zap.String("addr", serveAddr))
	fmt.Printf("Serving tiles from %s on %s (try /{z}/{x}/{y}.pbf)\n", root, serveAddr)
	if err := http.ListenAndServe(serveAddr, nil); err != nil {
		exitWithError("static server failed", err)
	}
}

func serveTile(root string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(root, filepath.Clean(r.URL.Path))
		if !filepathHasPrefix(path, root) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		data, err := os.ReadFile(path)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.mapbox-vector-tile")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Write(data)
	}
}

func filepathHasPrefix(path, prefix string) bool {
	rel, err := filepath.Rel(prefix, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
