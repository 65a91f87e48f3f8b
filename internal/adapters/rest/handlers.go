package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/verflow/internal/ports/primary"
)

// handler serves every route. Each method decodes, calls one service and
// encodes the result.
type handler struct {
	Services
	logger *zap.Logger
}

// --- versions ---

func (h *handler) createVersion(w http.ResponseWriter, r *http.Request) {
	var req primary.CreateVersionRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	req.ContentID = chi.URLParam(r, "contentID")
	req.AuthorID = userOr(r, req.AuthorID)

	v, err := h.Versions.CreateVersion(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, v)
}

func (h *handler) listVersions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	versions, err := h.Versions.GetAllVersions(r.Context(), chi.URLParam(r, "contentID"), limit, offset)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, versions)
}

func (h *handler) getVersion(w http.ResponseWriter, r *http.Request) {
	n, err := intParam(r, "number")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	v, err := h.Versions.GetVersion(r.Context(), chi.URLParam(r, "contentID"), n)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, v)
}

func (h *handler) revertVersion(w http.ResponseWriter, r *http.Request) {
	n, err := intParam(r, "number")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req primary.RevertRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	req.ContentID = chi.URLParam(r, "contentID")
	req.VersionNumber = n
	req.UserID = userOr(r, req.UserID)

	v, err := h.Versions.RevertToVersion(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, v)
}

// compareVersions serves a field diff, or a line diff of one field when
// ?field= is given.
func (h *handler) compareVersions(w http.ResponseWriter, r *http.Request) {
	from, err := queryInt(r, "from", 0)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	to, err := queryInt(r, "to", 0)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	contentID := chi.URLParam(r, "contentID")

	if field := r.URL.Query().Get("field"); field != "" {
		d, err := h.Versions.CompareVersionText(r.Context(), contentID, from, to, field)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, d)
		return
	}
	d, err := h.Versions.CompareVersions(r.Context(), contentID, from, to)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (h *handler) timeline(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Versions.GetTimeline(r.Context(), chi.URLParam(r, "contentID"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func (h *handler) versionSize(w http.ResponseWriter, r *http.Request) {
	n, err := intParam(r, "number")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	size, err := h.Versions.GetVersionSize(r.Context(), chi.URLParam(r, "contentID"), n)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, size)
}

func (h *handler) storageUsage(w http.ResponseWriter, r *http.Request) {
	top, err := queryInt(r, "top", 0)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	usage, err := h.Versions.GetStorageUsage(r.Context(), chi.URLParam(r, "contentID"), top)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, usage)
}

// --- autosaves ---

func (h *handler) saveAutosave(w http.ResponseWriter, r *http.Request) {
	var req primary.AutosaveRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	req.ContentID = chi.URLParam(r, "contentID")
	req.AuthorID = userOr(r, req.AuthorID)

	as, err := h.Versions.SaveAutosave(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, as)
}

func (h *handler) latestAutosave(w http.ResponseWriter, r *http.Request) {
	as, err := h.Versions.GetLatestAutosave(r.Context(), chi.URLParam(r, "contentID"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, as)
}

func (h *handler) promoteAutosave(w http.ResponseWriter, r *http.Request) {
	var req primary.PromoteAutosaveRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			h.respondError(w, r, err)
			return
		}
	}
	req.AutosaveID = chi.URLParam(r, "autosaveID")
	req.UserID = userOr(r, req.UserID)

	v, err := h.Versions.PromoteAutosave(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, v)
}

// --- branches ---

func (h *handler) createBranch(w http.ResponseWriter, r *http.Request) {
	var req primary.CreateBranchRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	req.ContentID = chi.URLParam(r, "contentID")

	b, err := h.Branches.CreateBranch(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, b)
}

func (h *handler) listBranches(w http.ResponseWriter, r *http.Request) {
	branches, err := h.Branches.ListBranches(r.Context(), chi.URLParam(r, "contentID"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, branches)
}

func (h *handler) getBranch(w http.ResponseWriter, r *http.Request) {
	b, err := h.Branches.GetBranch(r.Context(), chi.URLParam(r, "contentID"), chi.URLParam(r, "name"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, b)
}

func (h *handler) deleteBranch(w http.ResponseWriter, r *http.Request) {
	if err := h.Branches.DeleteBranch(r.Context(), chi.URLParam(r, "contentID"), chi.URLParam(r, "name")); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) mergeBranch(w http.ResponseWriter, r *http.Request) {
	var req primary.MergeBranchRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	req.ContentID = chi.URLParam(r, "contentID")
	req.UserID = userOr(r, req.UserID)

	res, err := h.Branches.MergeBranch(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}

// --- conflicts ---

func (h *handler) detectConflicts(w http.ResponseWriter, r *http.Request) {
	q, err := requireQuery(r, "source", "target")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	report, err := h.Conflicts.DetectConflicts(r.Context(), q["source"], q["target"])
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (h *handler) resolveConflict(w http.ResponseWriter, r *http.Request) {
	var req primary.ResolveConflictRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	req.UserID = userOr(r, req.UserID)

	res, err := h.Conflicts.ResolveConflict(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}

// --- workflow ---

// transitionBody accepts the target either by id or by name.
type transitionBody struct {
	ToStateID  int64  `json:"to_state_id"`
	ToState    string `json:"to_state"`
	UserID     string `json:"user_id"`
	Notes      string `json:"notes"`
	AssigneeID string `json:"assignee_id"`
}

func (h *handler) transition(w http.ResponseWriter, r *http.Request) {
	var body transitionBody
	if err := decode(r, &body); err != nil {
		h.respondError(w, r, err)
		return
	}
	if body.ToStateID == 0 && body.ToState != "" {
		st, err := h.Workflow.GetStateByName(r.Context(), body.ToState)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		body.ToStateID = st.ID
	}

	res, err := h.Workflow.TransitionContent(r.Context(), primary.TransitionRequest{
		ContentID:  chi.URLParam(r, "contentID"),
		ToStateID:  body.ToStateID,
		UserID:     userOr(r, body.UserID),
		Notes:      body.Notes,
		AssigneeID: body.AssigneeID,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (h *handler) currentState(w http.ResponseWriter, r *http.Request) {
	cw, err := h.Workflow.GetCurrentState(r.Context(), chi.URLParam(r, "contentID"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cw)
}

func (h *handler) nextStates(w http.ResponseWriter, r *http.Request) {
	states, err := h.Workflow.AllowedNextStates(r.Context(), chi.URLParam(r, "contentID"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, states)
}

func (h *handler) history(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	entries, err := h.Workflow.GetWorkflowHistory(r.Context(), chi.URLParam(r, "contentID"), limit, offset)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func (h *handler) listStates(w http.ResponseWriter, r *http.Request) {
	states, err := h.Workflow.ListStates(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, states)
}

func (h *handler) createState(w http.ResponseWriter, r *http.Request) {
	var req primary.CreateStateRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	st, err := h.Workflow.CreateState(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, st)
}

// --- approvals ---

func (h *handler) gateStatus(w http.ResponseWriter, r *http.Request) {
	report, err := h.Approvals.GetGateStatus(r.Context(), chi.URLParam(r, "contentID"), chi.URLParam(r, "state"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (h *handler) listApprovalWorkflows(w http.ResponseWriter, r *http.Request) {
	wfs, err := h.Approvals.ListWorkflows(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, wfs)
}

func (h *handler) createApprovalWorkflow(w http.ResponseWriter, r *http.Request) {
	var req primary.CreateApprovalWorkflowRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	wf, err := h.Approvals.CreateWorkflow(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, wf)
}

func (h *handler) getApprovalWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := h.Approvals.GetWorkflow(r.Context(), chi.URLParam(r, "workflowID"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, wf)
}

func (h *handler) addApprovalStep(w http.ResponseWriter, r *http.Request) {
	var req primary.AddStepRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	req.WorkflowID = chi.URLParam(r, "workflowID")

	step, err := h.Approvals.AddStep(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, step)
}

func (h *handler) requestApproval(w http.ResponseWriter, r *http.Request) {
	var req primary.RequestApprovalRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	req.RequestedBy = userOr(r, req.RequestedBy)

	ar, err := h.Approvals.RequestApproval(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, ar)
}

func (h *handler) recordDecision(w http.ResponseWriter, r *http.Request) {
	var req primary.RecordDecisionRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	req.RequestID = chi.URLParam(r, "requestID")
	req.UserID = userOr(r, req.UserID)

	d, err := h.Approvals.RecordDecision(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, d)
}

// --- retention ---

func (h *handler) getPolicy(w http.ResponseWriter, r *http.Request) {
	p, err := h.Retention.GetPolicy(r.Context(), chi.URLParam(r, "contentID"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *handler) setPolicy(w http.ResponseWriter, r *http.Request) {
	var req primary.SetPolicyRequest
	if err := decode(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	req.ContentID = chi.URLParam(r, "contentID")

	p, err := h.Retention.SetPolicy(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *handler) cleanVersions(w http.ResponseWriter, r *http.Request) {
	contentID := chi.URLParam(r, "contentID")
	n, err := h.Retention.CleanVersions(r.Context(), contentID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"content_id": contentID, "deleted": n})
}

func (h *handler) cleanAll(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Retention.CleanAll(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// --- audit ---

func (h *handler) listAudit(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 100)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	q := r.URL.Query()
	entries, err := h.Audit.ListEntries(r.Context(), primary.AuditFilters{
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
		ActorID:    q.Get("actor_id"),
		Action:     q.Get("action"),
		Limit:      limit,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}
