package handlers

import (
	"time"

	"github.com/MTGMAD/ai-media-gallery/internal/blobstore"
	"github.com/MTGMAD/ai-media-gallery/internal/database"
	"github.com/MTGMAD/ai-media-gallery/internal/ingest"
	"github.com/MTGMAD/ai-media-gallery/internal/reclaim"
	"github.com/MTGMAD/ai-media-gallery/internal/reconcile"
)

type Handlers struct {
	db         *database.Store
	blobs      *blobstore.Store
	ingestor   *ingest.Coordinator
	reconciler *reconcile.Engine
	reclaimer  *reclaim.Reclaimer
	startTime  time.Time
}

func New(db *database.Store, blobs *blobstore.Store, ingestor *ingest.Coordinator, reconciler *reconcile.Engine, reclaimer *reclaim.Reclaimer) *Handlers {
	return &Handlers{
		db:         db,
		blobs:      blobs,
		ingestor:   ingestor,
		reconciler: reconciler,
		reclaimer:  reclaimer,
		startTime:  time.Now(),
	}
}
