package workflow

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/conclave-ai/conclave/pkg/agentexec"
	"github.com/conclave-ai/conclave/pkg/config"
	"github.com/conclave-ai/conclave/pkg/models"
)

// planShape is a generated plan layout: tasks per step, and per-task whether
// the stub executor fails it permanently.
type planShape struct {
	StepSizes []int
	FailTask  []bool
}

func genPlanShape() gopter.Gen {
	shapeType := reflect.TypeOf(planShape{})
	return gen.IntRange(1, 3).FlatMap(func(v any) gopter.Gen {
		steps := v.(int)
		return gen.SliceOfN(steps, gen.IntRange(1, 4)).FlatMap(func(v any) gopter.Gen {
			sizes := v.([]int)
			total := 0
			for _, s := range sizes {
				total += s
			}
			return gen.SliceOfN(total, gen.Bool()).Map(func(fails []bool) planShape {
				return planShape{StepSizes: sizes, FailTask: fails}
			})
		}, shapeType)
	}, shapeType)
}

func buildShapedPlan(shape planShape) *models.ExecutionPlan {
	plan := &models.ExecutionPlan{AggregateStatus: models.TaskStatusPending}
	flat := 0
	for si, size := range shape.StepSizes {
		step := models.Step{
			StepID:     fmt.Sprintf("step_%d", si+1),
			StepNumber: si + 1,
			Status:     models.TaskStatusPending,
		}
		for ti := 0; ti < size; ti++ {
			step.Tasks = append(step.Tasks, models.Task{
				Agent:   fmt.Sprintf("agent_%d", flat),
				AgentID: fmt.Sprintf("agent-%d", flat),
				Purpose: fmt.Sprintf("task %d", flat),
				Tools:   []models.ToolCall{{Tool: "rag_tool", Message: fmt.Sprintf("query %d", flat)}},
				Status:  models.TaskStatusPending,
			})
			flat++
		}
		plan.Steps = append(plan.Steps, step)
	}
	plan.TotalSteps = len(plan.Steps)
	return plan
}

func executorState(plan *models.ExecutionPlan) *models.WorkflowState {
	providers := make(map[string]models.ProviderDescriptor)
	plan.EachTask(func(_, _, _ int, task *models.Task) {
		providers[task.AgentID] = models.ProviderDescriptor{ProviderName: "primary"}
	})
	return &models.WorkflowState{
		Query:          "q",
		UserContext:    models.UserContext{TenantID: "t1", Role: models.RoleAdmin},
		ExecutionPlan:  plan,
		AgentProviders: providers,
	}
}

func runExecutorOnce(shape planShape, delays []int) *models.StatePatch {
	plan := buildShapedPlan(shape)
	state := executorState(plan)

	stub := agentexec.NewStubToolExecutor()
	flat := 0
	for range shape.FailTask {
		if shape.FailTask[flat] {
			stub.FailTimes(fmt.Sprintf("agent-%d", flat), "rag_tool", 3)
		}
		flat++
	}

	var executor agentexec.ToolExecutor = stub
	if delays != nil {
		// Skew completion ordering within a step without changing outcomes.
		executor = agentexec.ToolExecutorFunc(func(ctx context.Context, req *agentexec.ToolRequest) (*models.ToolResult, error) {
			var idx int
			fmt.Sscanf(req.AgentID, "agent-%d", &idx)
			if idx < len(delays) {
				time.Sleep(time.Duration(delays[idx]) * time.Millisecond)
			}
			return stub.ExecuteTool(ctx, req)
		})
	}

	node := &executorNode{
		executor: executor,
		engine:   config.DefaultEngineConfig(),
		bus:      newProgressBus(256),
		sleep:    func(context.Context, time.Duration) {},
	}
	patch, _ := node.Run(context.Background(), state)
	return patch
}

// For any legal plan, the executor settles every task exactly once with a
// terminal status.
func TestExecutorResponseClosureProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("one terminal response per task", prop.ForAll(
		func(shape planShape) bool {
			total := 0
			for _, s := range shape.StepSizes {
				total += s
			}
			patch := runExecutorOnce(shape, nil)
			if len(patch.AgentResponses) != total {
				return false
			}
			for _, r := range patch.AgentResponses {
				if r.Status != models.TaskStatusCompleted && r.Status != models.TaskStatusFailed {
					return false
				}
			}
			return true
		},
		genPlanShape(),
	))

	properties.TestingRun(t)
}

// Completion ordering within a step must not change the set of final
// responses, only event interleaving.
func TestExecutorOrderingEquivalenceProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("response set is ordering-independent", prop.ForAll(
		func(shape planShape, seed []int) bool {
			total := 0
			for _, s := range shape.StepSizes {
				total += s
			}
			delays := make([]int, total)
			for i := range delays {
				if len(seed) > 0 {
					delays[i] = seed[i%len(seed)] % 5
				}
			}
			reversed := make([]int, total)
			for i := range reversed {
				reversed[i] = delays[total-1-i]
			}

			first := responseSet(runExecutorOnce(shape, delays))
			second := responseSet(runExecutorOnce(shape, reversed))
			if len(first) != len(second) {
				return false
			}
			for i := range first {
				if first[i] != second[i] {
					return false
				}
			}
			return true
		},
		genPlanShape(),
		gen.SliceOfN(4, gen.IntRange(0, 4)),
	))

	properties.TestingRun(t)
}

// responseSet reduces a patch to the sorted (agent_id, status) pairs.
func responseSet(patch *models.StatePatch) []string {
	out := make([]string, 0, len(patch.AgentResponses))
	for _, r := range patch.AgentResponses {
		out = append(out, r.AgentID+"="+string(r.Status))
	}
	sort.Strings(out)
	return out
}
