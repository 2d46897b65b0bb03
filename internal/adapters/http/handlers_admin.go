package httpadapter

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/pitchroom-backend/internal/core/domain"
	"github.com/kirillkom/pitchroom-backend/internal/core/usecase"
)

const maxUploadBytes = 64 << 20

func (rt *Router) handleCreateRecipient(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Email       string `json:"email"`
		CompanyName string `json:"company_name"`
		Persona     string `json:"persona"`
	}
	if err := decodeJSONBody(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	recipient, err := rt.admin.CreateRecipient(r.Context(), req.Name, req.Email, req.CompanyName, req.Persona)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, recipient)
}

// handleCreateDocument accepts either a JSON body referencing an external
// URL or a multipart form carrying the file itself.
func (rt *Router) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")

	var in usecase.CreateDocumentInput
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "parse multipart form: "+err.Error())
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing file part")
			return
		}
		defer file.Close()
		content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
		if err != nil {
			writeError(w, http.StatusBadRequest, "read file part: "+err.Error())
			return
		}
		if len(content) > maxUploadBytes {
			writeError(w, http.StatusRequestEntityTooLarge, "file exceeds upload limit")
			return
		}
		in = usecase.CreateDocumentInput{
			Title:               r.FormValue("title"),
			InternalDescription: r.FormValue("internal_description"),
			MimeType:            header.Header.Get("Content-Type"),
			Filename:            header.Filename,
			Content:             content,
		}
		if mimeType := r.FormValue("mime_type"); mimeType != "" {
			in.MimeType = mimeType
		}
	} else {
		var req struct {
			Title               string `json:"title"`
			InternalDescription string `json:"internal_description"`
			MimeType            string `json:"mime_type"`
			ExternalURL         string `json:"external_url"`
		}
		if err := decodeJSONBody(r, &req); err != nil {
			writeDomainError(w, err)
			return
		}
		in = usecase.CreateDocumentInput{
			Title:               req.Title,
			InternalDescription: req.InternalDescription,
			MimeType:            req.MimeType,
			ExternalURL:         req.ExternalURL,
		}
	}

	doc, err := rt.admin.CreateDocument(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (rt *Router) handleCreateFileStore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name           string          `json:"name"`
		Description    string          `json:"description"`
		ChunkingConfig json.RawMessage `json:"chunking_config"`
	}
	if err := decodeJSONBody(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	store, err := rt.admin.CreateFileStore(r.Context(), req.Name, req.Description, req.ChunkingConfig)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, store)
}

func (rt *Router) handleAttachDocuments(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DocumentIDs []string `json:"document_ids"`
		CreateJob   bool     `json:"create_job"`
	}
	if err := decodeJSONBody(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	jobID, err := rt.admin.AttachDocuments(r.Context(), r.PathValue("storeID"), req.DocumentIDs, req.CreateJob)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := map[string]any{"attached": len(req.DocumentIDs)}
	if jobID != "" {
		resp["job_id"] = jobID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Slug                 string   `json:"slug"`
		Title                string   `json:"title"`
		RecipientID          string   `json:"recipient_id"`
		TemplateKey          string   `json:"template_key"`
		SystemPromptTemplate string   `json:"system_prompt_template"`
		SummaryMarkdown      string   `json:"summary_markdown"`
		DetailsMarkdown      string   `json:"details_markdown"`
		FileStoreIDs         []string `json:"file_store_ids"`
		DisplayDocuments     []struct {
			DocumentID     string `json:"document_id"`
			DisplayTitle   string `json:"display_title"`
			DisplayCaption string `json:"display_caption"`
			SortOrder      int    `json:"sort_order"`
		} `json:"display_documents"`
	}
	if err := decodeJSONBody(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}

	in := usecase.CreatePageInput{
		Slug:                 req.Slug,
		Title:                req.Title,
		RecipientID:          req.RecipientID,
		TemplateKey:          req.TemplateKey,
		SystemPromptTemplate: req.SystemPromptTemplate,
		SummaryMarkdown:      req.SummaryMarkdown,
		DetailsMarkdown:      req.DetailsMarkdown,
		FileStoreIDs:         req.FileStoreIDs,
	}
	for _, doc := range req.DisplayDocuments {
		in.DisplayDocuments = append(in.DisplayDocuments, domain.PageDocument{
			DocumentID:     doc.DocumentID,
			DisplayTitle:   doc.DisplayTitle,
			DisplayCaption: doc.DisplayCaption,
			SortOrder:      doc.SortOrder,
		})
	}

	page, err := rt.admin.CreatePage(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, page)
}

func (rt *Router) handleTakedownPage(w http.ResponseWriter, r *http.Request) {
	if err := rt.admin.TakedownPage(r.Context(), r.PathValue("pageID")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "inactive"})
}

func (rt *Router) handleCreateIngestionJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FileStoreID string `json:"file_store_id"`
		Enqueue     bool   `json:"enqueue"`
	}
	if err := decodeJSONBody(r, &req); err != nil {
		writeDomainError(w, err)
		return
	}
	job, err := rt.admin.CreateIngestionJob(r.Context(), req.FileStoreID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if req.Enqueue {
		if err := rt.queue.PublishRunJob(r.Context(), job.ID); err != nil {
			writeDomainError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, job)
}

func (rt *Router) handleGetIngestionJob(w http.ResponseWriter, r *http.Request) {
	job, err := rt.jobs.GetJob(r.Context(), r.PathValue("jobID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (rt *Router) handleListJobEvents(w http.ResponseWriter, r *http.Request) {
	var afterID int64
	if raw := r.URL.Query().Get("after_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "after_id must be a non-negative integer")
			return
		}
		afterID = parsed
	}
	events, err := rt.jobs.ListEvents(r.Context(), r.PathValue("jobID"), afterID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// handleRunIngestionJob executes one synchronous time slice of the job and
// returns the job state the slice left behind.
func (rt *Router) handleRunIngestionJob(w http.ResponseWriter, r *http.Request) {
	timeBudget := rt.defaultBudget
	batchSize := rt.defaultBatch
	if r.ContentLength > 0 {
		var req struct {
			TimeBudgetSeconds int `json:"time_budget_seconds"`
			BatchSize         int `json:"batch_size"`
		}
		if err := decodeJSONBody(r, &req); err != nil {
			writeDomainError(w, err)
			return
		}
		if req.TimeBudgetSeconds > 0 {
			timeBudget = time.Duration(req.TimeBudgetSeconds) * time.Second
		}
		if req.BatchSize > 0 {
			batchSize = req.BatchSize
		}
	}

	job, err := rt.trigger.Run(r.Context(), r.PathValue("jobID"), timeBudget, batchSize)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (rt *Router) handleEnqueueIngestionJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("jobID")
	if _, err := rt.jobs.GetJob(r.Context(), jobID); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := rt.queue.PublishRunJob(r.Context(), jobID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID, "status": "enqueued"})
}
