package handlers

import (
	"github.com/gofiber/fiber/v2"

	"go_branch_chat/models"
	"go_branch_chat/pkg/snapshot"
	"go_branch_chat/pkg/tree"
	"go_branch_chat/services"
)

type TreeHandler struct {
	trees *services.TreeService
}

func NewTreeHandler(trees *services.TreeService) *TreeHandler {
	return &TreeHandler{trees: trees}
}

func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

func (h *TreeHandler) ListTrees(c *fiber.Ctx) error {
	list, err := h.trees.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"trees": list})
}

func (h *TreeHandler) CreateTree(c *fiber.Ctx) error {
	var req models.CreateTreeReq
	if err := parseBody(c, &req); err != nil {
		return err
	}
	t, err := h.trees.Create(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(snapshot.ToSnapshot(t))
}

func (h *TreeHandler) GetTree(c *fiber.Ctx) error {
	t, err := h.trees.Get(c.UserContext(), c.Params("tree_id"))
	if err != nil {
		return err
	}
	return c.JSON(snapshot.ToSnapshot(t))
}

func (h *TreeHandler) RenameTree(c *fiber.Ctx) error {
	var req models.RenameTreeReq
	if err := parseBody(c, &req); err != nil {
		return err
	}
	t, err := h.trees.Rename(c.UserContext(), c.Params("tree_id"), req.Name)
	if err != nil {
		return err
	}
	return c.JSON(snapshot.ToSnapshot(t))
}

func (h *TreeHandler) DeleteTree(c *fiber.Ctx) error {
	if err := h.trees.Delete(c.UserContext(), c.Params("tree_id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *TreeHandler) AppendExchange(c *fiber.Ctx) error {
	var req models.ExchangeReq
	if err := parseBody(c, &req); err != nil {
		return err
	}
	t, nodeID, err := h.trees.AppendExchange(c.UserContext(), c.Params("tree_id"), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(models.AppendRes{NodeID: nodeID, Tree: snapshot.ToSnapshot(t)})
}

func (h *TreeHandler) GetPath(c *fiber.Ctx) error {
	res, err := h.trees.Path(c.UserContext(), c.Params("tree_id"), c.Query("node_id"))
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *TreeHandler) GetLayout(c *fiber.Ctx) error {
	res, err := h.trees.Layout(c.UserContext(), c.Params("tree_id"))
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *TreeHandler) GetStats(c *fiber.Ctx) error {
	res, err := h.trees.Stats(c.UserContext(), c.Params("tree_id"))
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *TreeHandler) CreateBranch(c *fiber.Ctx) error {
	var req models.CreateBranchReq
	if err := parseBody(c, &req); err != nil {
		return err
	}
	t, b, err := h.trees.CreateBranch(c.UserContext(), c.Params("tree_id"), req.ForkNodeID, req.Name)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(models.CreateBranchRes{Branch: b, Tree: snapshot.ToSnapshot(t)})
}

func (h *TreeHandler) SelectBranch(c *fiber.Ctx) error {
	t, err := h.trees.SelectBranch(c.UserContext(), c.Params("tree_id"), c.Params("branch_id"))
	if err != nil {
		return err
	}
	return c.JSON(snapshot.ToSnapshot(t))
}

func (h *TreeHandler) ActivateBranch(c *fiber.Ctx) error {
	t, err := h.trees.SwitchBranch(c.UserContext(), c.Params("tree_id"), c.Params("branch_id"))
	if err != nil {
		return err
	}
	return c.JSON(snapshot.ToSnapshot(t))
}

func (h *TreeHandler) Navigate(c *fiber.Ctx) error {
	var req models.NavigateReq
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.NodeID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "node_id is required")
	}
	t, err := h.trees.Navigate(c.UserContext(), c.Params("tree_id"), req.NodeID, req.Focus)
	if err != nil {
		return err
	}
	return c.JSON(snapshot.ToSnapshot(t))
}

func (h *TreeHandler) SavePositions(c *fiber.Ctx) error {
	var req models.PositionsReq
	if err := parseBody(c, &req); err != nil {
		return err
	}
	t, err := h.trees.SaveNodePositions(c.UserContext(), c.Params("tree_id"), req.Positions)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"node_positions": t.NodePositions})
}

func (h *TreeHandler) ClearPositions(c *fiber.Ctx) error {
	if _, err := h.trees.ClearNodePositions(c.UserContext(), c.Params("tree_id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *TreeHandler) SetViewport(c *fiber.Ctx) error {
	var vp tree.Viewport
	if err := parseBody(c, &vp); err != nil {
		return err
	}
	t, err := h.trees.SetViewport(c.UserContext(), c.Params("tree_id"), vp)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"viewport": t.Viewport})
}
