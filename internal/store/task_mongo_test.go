package store

import (
	"context"
	"testing"
	"time"

	"github.com/gramseva/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

// The mock deployment answers every command and records what the driver
// sent, so these tests pin the exact filter/update documents the
// repository issues.

func TestTaskOverdue_FilterAndSort(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("excludes completed and future tasks, most urgent first", func(mt *mtest.T) {
		repo := NewTaskRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, mt.DB.Name()+".tasks", mtest.FirstBatch))

		before := time.Now()
		_, err := repo.Overdue(context.Background(), "T1")
		require.NoError(mt, err)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "find", evt.CommandName)

		var cmd struct {
			Filter struct {
				Taluka  string `bson:"taluka"`
				DueDate struct {
					Lt time.Time `bson:"$lt"`
				} `bson:"dueDate"`
				Status struct {
					Ne types.TaskStatus `bson:"$ne"`
				} `bson:"status"`
			} `bson:"filter"`
			Sort struct {
				DueDate int `bson:"dueDate"`
			} `bson:"sort"`
		}
		require.NoError(mt, bson.Unmarshal(evt.Command, &cmd))

		assert.Equal(mt, "T1", cmd.Filter.Taluka)
		assert.Equal(mt, types.TaskStatusCompleted, cmd.Filter.Status.Ne)
		assert.False(mt, cmd.Filter.DueDate.Lt.Before(before.Truncate(time.Millisecond)))
		assert.False(mt, cmd.Filter.DueDate.Lt.After(time.Now()))
		assert.Equal(mt, 1, cmd.Sort.DueDate)
	})
}

func TestTaskBulkUpdate_ScopesToIDsAndTaluka(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("updateMany filter carries both the id set and the taluka", func(mt *mtest.T) {
		repo := NewTaskRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 2},
			bson.E{Key: "nModified", Value: 2},
		))

		first := primitive.NewObjectID()
		second := primitive.NewObjectID()
		status := types.TaskStatusCompleted
		modified, err := repo.BulkUpdate(context.Background(),
			[]string{first.Hex(), second.Hex()}, "T1", TaskPatch{Status: &status})

		require.NoError(mt, err)
		assert.Equal(mt, int64(2), modified)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "update", evt.CommandName)

		var cmd struct {
			Updates []struct {
				Q struct {
					ID struct {
						In []primitive.ObjectID `bson:"$in"`
					} `bson:"_id"`
					Taluka string `bson:"taluka"`
				} `bson:"q"`
				U struct {
					Set bson.M `bson:"$set"`
				} `bson:"u"`
				Multi bool `bson:"multi"`
			} `bson:"updates"`
		}
		require.NoError(mt, bson.Unmarshal(evt.Command, &cmd))
		require.Len(mt, cmd.Updates, 1)

		update := cmd.Updates[0]
		assert.True(mt, update.Multi)
		assert.Equal(mt, "T1", update.Q.Taluka)
		assert.ElementsMatch(mt, []primitive.ObjectID{first, second}, update.Q.ID.In)
		assert.Equal(mt, string(types.TaskStatusCompleted), update.U.Set["status"])
		assert.Contains(mt, update.U.Set, "updatedAt")
		assert.NotContains(mt, update.U.Set, "title")
	})
}

func TestTaskBulkUpdate_SkipsMalformedIDs(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("bad hex ids are dropped from the id set", func(mt *mtest.T) {
		repo := NewTaskRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		valid := primitive.NewObjectID()
		status := types.TaskStatusInProgress
		_, err := repo.BulkUpdate(context.Background(),
			[]string{valid.Hex(), "not-an-object-id"}, "T1", TaskPatch{Status: &status})
		require.NoError(mt, err)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)

		var cmd struct {
			Updates []struct {
				Q struct {
					ID struct {
						In []primitive.ObjectID `bson:"$in"`
					} `bson:"_id"`
				} `bson:"q"`
			} `bson:"updates"`
		}
		require.NoError(mt, bson.Unmarshal(evt.Command, &cmd))
		require.Len(mt, cmd.Updates, 1)
		assert.Equal(mt, []primitive.ObjectID{valid}, cmd.Updates[0].Q.ID.In)
	})
}
