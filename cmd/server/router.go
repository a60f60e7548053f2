package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/slidesmith/slidesmith-api/internal/api"
	"github.com/slidesmith/slidesmith-api/internal/api/middleware"
)

type routerDeps struct {
	projects       *api.ProjectHandler
	pages          *api.PageHandler
	materials      *api.MaterialHandler
	exports        *api.ExportHandler
	referenceFiles *api.ReferenceFileHandler
	tasks          *api.TaskHandler

	artifactRoot  string
	publicBaseURL string
}

// newRouter builds the chi route tree.
func newRouter(deps routerDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.TraceMiddleware)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(2 * time.Minute)) // long enough for sync exports

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Generated artifacts (page images, exports, templates) are served
	// under the public base URL.
	fileServer := http.StripPrefix(deps.publicBaseURL+"/",
		http.FileServer(http.Dir(deps.artifactRoot)))
	r.Get(deps.publicBaseURL+"/*", fileServer.ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/projects", func(r chi.Router) {
			r.Post("/", deps.projects.CreateProject)

			r.Route("/{projectID}", func(r chi.Router) {
				r.Get("/", deps.projects.GetProject)
				r.Patch("/", deps.projects.UpdateProject)
				r.Delete("/", deps.projects.DeleteProject)
				r.Post("/template", deps.projects.UploadTemplate)

				r.Route("/pages", func(r chi.Router) {
					r.Get("/", deps.pages.ListPages)
					r.Post("/", deps.pages.CreatePage)

					r.Route("/{pageID}", func(r chi.Router) {
						r.Get("/", deps.pages.GetPage)
						r.Delete("/", deps.pages.DeletePage)
						r.Put("/outline", deps.pages.UpdateOutline)
						r.Put("/description", deps.pages.UpdateDescription)

						r.Post("/image", deps.pages.GenerateImage)
						r.Post("/image/edits", deps.pages.EditImage)

						r.Get("/versions", deps.pages.ListVersions)
						r.Post("/versions/{versionID}/current", deps.pages.SetCurrentVersion)
					})
				})

				r.Route("/materials", func(r chi.Router) {
					r.Get("/", deps.materials.ListMaterials)
					r.Post("/", deps.materials.CreateMaterial)
					r.Post("/{materialID}/image", deps.materials.GenerateMaterial)
					r.Delete("/{materialID}", deps.materials.DeleteMaterial)
				})

				r.Route("/exports", func(r chi.Router) {
					r.Post("/pdf", deps.exports.ExportPDF)
					r.Post("/pptx", deps.exports.ExportPPTX)
					r.Post("/editable", deps.exports.ExportEditable)
				})
			})
		})

		r.Route("/reference-files", func(r chi.Router) {
			r.Get("/", deps.referenceFiles.List)
			r.Post("/", deps.referenceFiles.Upload)
			r.Get("/{fileID}", deps.referenceFiles.Get)
			r.Post("/{fileID}/reparse", deps.referenceFiles.Reparse)
			r.Delete("/{fileID}", deps.referenceFiles.Delete)
		})

		r.Get("/tasks/{taskID}", deps.tasks.GetTask)
	})

	return r
}
