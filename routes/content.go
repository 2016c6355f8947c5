package routes

import (
	"errors"
	"net/http"

	"content-analysis-platform/internal/queue"
	"content-analysis-platform/internal/telemetry"
	"content-analysis-platform/models"
	"content-analysis-platform/services"
	"content-analysis-platform/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

// SetupContentRoutes wires the content pipeline endpoints. queueClient
// may be nil, in which case the async ingest endpoint is not exposed.
func SetupContentRoutes(router *gin.Engine, pipeline *services.ContentPipeline, queueClient *asynq.Client, metrics *telemetry.Metrics) {
	router.POST("/content", createContent(pipeline, metrics))
	router.GET("/content/:content_id", getContent(pipeline, metrics))
	router.POST("/content/search", searchContent(pipeline, metrics))

	if queueClient != nil {
		router.POST("/content/async", enqueueContent(queueClient))
	}
}

func createContent(pipeline *services.ContentPipeline, metrics *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ContentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		resp, err := pipeline.Ingest(c.Request.Context(), req.Text, req.TenantID, req.Metadata)
		metrics.RecordPipelineOp("ingest", err == nil)
		if err != nil {
			utils.RespondWithInternalError(c, err.Error(), nil)
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}

func getContent(pipeline *services.ContentPipeline, metrics *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		contentID := c.Param("content_id")

		result, err := pipeline.FetchByID(c.Request.Context(), contentID)
		metrics.RecordPipelineOp("fetch", err == nil || errors.Is(err, services.ErrNotFound))
		if errors.Is(err, services.ErrNotFound) {
			utils.RespondWithNotFound(c, "Content not found")
			return
		}
		if err != nil {
			utils.RespondWithInternalError(c, err.Error(), nil)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func searchContent(pipeline *services.ContentPipeline, metrics *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		results, err := pipeline.Search(c.Request.Context(), req.Query, req.TenantID, req.Filters)
		metrics.RecordPipelineOp("search", err == nil)
		if err != nil {
			utils.RespondWithInternalError(c, err.Error(), nil)
			return
		}

		c.JSON(http.StatusOK, results)
	}
}

func enqueueContent(queueClient *asynq.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ContentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		task, err := queue.NewIngestTask(req.Text, req.TenantID, req.Metadata)
		if err != nil {
			utils.RespondWithInternalError(c, err.Error(), nil)
			return
		}

		info, err := queueClient.EnqueueContext(c.Request.Context(), task)
		if err != nil {
			utils.RespondWithInternalError(c, err.Error(), nil)
			return
		}

		c.JSON(http.StatusAccepted, models.IngestTaskResponse{
			TaskID: info.ID,
			State:  info.State.String(),
		})
	}
}
