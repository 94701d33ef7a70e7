package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleGetAdminJobsStatus(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, s.app.JobManager().GetStatus())
}

func (s *Server) handleRunAdminJob(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		JobName string `json:"job_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := s.app.JobManager().RunJob(payload.JobName, s.app); err != nil {
		RespondWithError(w, http.StatusConflict, err.Error()) // 409 if a job is already running
		return
	}

	RespondWithJSON(w, http.StatusAccepted, map[string]string{
		"message": "Job '" + payload.JobName + "' started successfully.",
	})
}

func (s *Server) handleListBackups(w http.ResponseWriter, r *http.Request) {
	backups, err := s.backup.List()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to list backups")
		return
	}
	if backups == nil {
		backups = []string{}
	}
	RespondWithJSON(w, http.StatusOK, backups)
}

func (s *Server) handleCreateBackup(w http.ResponseWriter, r *http.Request) {
	path, err := s.backup.Snapshot(r.Context(), "manual")
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Backup failed: "+err.Error())
		return
	}
	if keep := s.app.Config().Backup.Keep; keep > 0 {
		if err := s.backup.Prune(keep); err != nil {
			RespondWithError(w, http.StatusInternalServerError, "Backup pruning failed: "+err.Error())
			return
		}
	}
	RespondWithJSON(w, http.StatusCreated, map[string]string{"path": path})
}
