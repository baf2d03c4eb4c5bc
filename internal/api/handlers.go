package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kswarrior/ks-wings/internal/deploy"
	"github.com/kswarrior/ks-wings/internal/logger"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Message: message})
}

// statusForErr maps a deploy package error kind to an HTTP status (spec §7).
func statusForErr(err error) int {
	switch {
	case deploy.IsBadRequest(err):
		return http.StatusBadRequest
	case deploy.IsNotFound(err):
		return http.StatusNotFound
	case deploy.IsConflict(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ports, err := toPortSpecs(body.PortBindings)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.pipeline.Create(r.Context(), deploy.CreateRequest{
		InstanceID:   body.Id,
		Image:        body.Image,
		Cmd:          body.Cmd,
		Env:          body.Env,
		Ports:        ports,
		Scripts:      deploy.Scripts{Install: toScripts(body.Scripts)},
		MemoryMiB:    body.Memory,
		CPUCount:     body.Cpu,
		DiskLimitMiB: body.Disk,
		Variables:    body.Variables,
	})
	if err != nil {
		logger.GetLogger(r.Context()).Error("create failed", zap.String("instance_id", body.Id), zap.Error(err))
		writeError(w, statusForErr(err), err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, result)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.pipeline.Delete(r.Context(), id); err != nil {
		logger.GetLogger(r.Context()).Error("delete failed", zap.String("instance_id", id), zap.Error(err))
		writeError(w, statusForErr(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRedeploy(w http.ResponseWriter, r *http.Request) {
	s.replace(w, r, false)
}

func (s *Server) handleReinstall(w http.ResponseWriter, r *http.Request) {
	s.replace(w, r, true)
}

func (s *Server) replace(w http.ResponseWriter, r *http.Request, reinstall bool) {
	id := chi.URLParam(r, "id")
	containerID := chi.URLParam(r, "containerId")

	var body redeployRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ports, err := toPortSpecs(body.PortBindings)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := deploy.RedeployRequest{
		InstanceID:          id,
		ExpectedContainerID: containerID,
		Image:               body.Image,
		Cmd:                 body.Cmd,
		Env:                 body.Env,
		Ports:               ports,
		Scripts:             deploy.Scripts{Install: toScripts(body.Scripts)},
		Variables:           body.Variables,
		MemoryMiB:           body.Memory,
		CPUCount:            body.Cpu,
	}

	var result *deploy.CreateResult
	if reinstall {
		result, err = s.pipeline.Reinstall(r.Context(), req)
	} else {
		result, err = s.pipeline.Redeploy(r.Context(), req)
	}
	if err != nil {
		logger.GetLogger(r.Context()).Error("redeploy failed",
			zap.String("instance_id", id), zap.Bool("reinstall", reinstall), zap.Error(err))
		writeError(w, statusForErr(err), err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, result)
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body editRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	editReq := deploy.EditRequest{
		InstanceID: id,
		MemoryMiB:  body.Memory,
		CPUCount:   body.Cpu,
	}
	if body.Disk != nil {
		editReq.DiskLimitMiB = *body.Disk
		editReq.DiskLimitSet = true
	}

	err := s.pipeline.Edit(r.Context(), editReq)
	if err != nil {
		logger.GetLogger(r.Context()).Error("edit failed", zap.String("instance_id", id), zap.Error(err))
		writeError(w, statusForErr(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	volumeID := chi.URLParam(r, "volumeId")

	rec, ok, err := s.store.Get(volumeID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "instance not found")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	containers, err := s.rt.List(r.Context(), false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	hostStats, err := SampleHostStats()
	if err != nil {
		logger.GetLogger(r.Context()).Warn("host stats sample failed", zap.Error(err))
	}

	writeJSON(w, http.StatusOK, statsResponse{
		TotalHostStats:      hostStats,
		OnlineContainersCount: len(containers),
		Uptime:              formatUptime(time.Since(s.started)),
	})
}
