package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/roadmasterhq/roadmaster/core"
	"github.com/roadmasterhq/roadmaster/core/quiz"
)

type quizApi struct {
	svc *quiz.Service
}

func registerQuizAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *quiz.Service) {
	api := quizApi{svc: svc}

	qg := g.Group("/quiz", jwt)
	qg.GET("/categories", api.queryCategories)
	qg.GET("/progress", api.progress)
	qg.GET("/progress/:categoryId", api.categoryProgress)
	qg.GET("/readiness", api.readiness)
	qg.GET("/mock-results", api.mockResults)

	qg.POST("/practice", api.startPractice)
	qg.POST("/mock", api.startMockTest)

	sg := qg.Group("/sessions/:id")
	sg.GET("", api.retrieveSession)
	sg.POST("/answer", api.answer)
	sg.POST("/next", api.next)
	sg.POST("/prev", api.prev)
	sg.POST("/goto", api.goTo)
	sg.POST("/flag", api.toggleFlag)
	sg.POST("/finish", api.finish)
	sg.DELETE("", api.exit)
}

// Handlers

func (api *quizApi) queryCategories(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.svc.Bank().Categories())
}

func (api *quizApi) progress(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	summaries, err := api.svc.Progress(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying quiz progress")
	}
	return ctx.JSON(http.StatusOK, summaries)
}

func (api *quizApi) categoryProgress(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	sum, err := api.svc.CategoryProgress(ctx.Request().Context(), claims.Subject, ctx.Param("categoryId"))
	if err != nil {
		if errors.Cause(err) == quiz.ErrCategoryNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "querying category progress")
	}
	return ctx.JSON(http.StatusOK, sum)
}

func (api *quizApi) readiness(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	score, err := api.svc.ReadinessScore(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "computing readiness score")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"readiness": score})
}

func (api *quizApi) mockResults(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	results, err := api.svc.MockResults(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying mock test results")
	}
	if results == nil {
		results = []quiz.MockResult{}
	}
	return ctx.JSON(http.StatusOK, results)
}

type startPracticeRequest struct {
	CategoryID string `json:"category_id" validate:"required"`
}

func (api *quizApi) startPractice(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var data startPracticeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to startPracticeRequest")
	}
	if err := core.Validate.Struct(&data); err != nil {
		return err
	}

	sess, err := api.svc.StartPractice(ctx.Request().Context(), claims.Subject, data.CategoryID)
	if err != nil {
		if errors.Cause(err) == quiz.ErrCategoryNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "starting practice session")
	}
	return ctx.JSON(http.StatusCreated, sess.Snapshot())
}

func (api *quizApi) startMockTest(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	sess, err := api.svc.StartMockTest(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "starting mock test")
	}
	return ctx.JSON(http.StatusCreated, sess.Snapshot())
}

func (api *quizApi) getSession(ctx echo.Context) (*quiz.Session, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return nil, err
	}
	sess, err := api.svc.GetSession(ctx.Param("id"), claims.Subject)
	if err != nil {
		return nil, errHttpNotFound
	}
	return sess, nil
}

func (api *quizApi) retrieveSession(ctx echo.Context) error {
	sess, err := api.getSession(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sess.Snapshot())
}

type answerRequest struct {
	Index int `json:"index"`
}

func (api *quizApi) answer(ctx echo.Context) error {
	sess, err := api.getSession(ctx)
	if err != nil {
		return err
	}

	var data answerRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to answerRequest")
	}

	if err := api.svc.SelectAnswer(ctx.Request().Context(), sess, data.Index); err != nil {
		if errors.Cause(err) == quiz.ErrInvalidAnswer {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return errors.Wrap(err, "recording answer")
	}
	return ctx.JSON(http.StatusOK, sess.Snapshot())
}

func (api *quizApi) next(ctx echo.Context) error {
	sess, err := api.getSession(ctx)
	if err != nil {
		return err
	}
	sess.Next()
	return ctx.JSON(http.StatusOK, sess.Snapshot())
}

func (api *quizApi) prev(ctx echo.Context) error {
	sess, err := api.getSession(ctx)
	if err != nil {
		return err
	}
	sess.Prev()
	return ctx.JSON(http.StatusOK, sess.Snapshot())
}

type goToRequest struct {
	Index int `json:"index"`
}

func (api *quizApi) goTo(ctx echo.Context) error {
	sess, err := api.getSession(ctx)
	if err != nil {
		return err
	}

	var data goToRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to goToRequest")
	}
	sess.GoTo(data.Index)
	return ctx.JSON(http.StatusOK, sess.Snapshot())
}

func (api *quizApi) toggleFlag(ctx echo.Context) error {
	sess, err := api.getSession(ctx)
	if err != nil {
		return err
	}
	sess.ToggleFlag()
	return ctx.JSON(http.StatusOK, sess.Snapshot())
}

func (api *quizApi) finish(ctx echo.Context) error {
	sess, err := api.getSession(ctx)
	if err != nil {
		return err
	}

	res, err := api.svc.FinishMockTest(ctx.Request().Context(), sess)
	if err != nil {
		if errors.Cause(err) == quiz.ErrNotMockSession {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return errors.Wrap(err, "finishing mock test")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *quizApi) exit(ctx echo.Context) error {
	sess, err := api.getSession(ctx)
	if err != nil {
		return err
	}
	api.svc.Exit(sess)
	return ctx.NoContent(http.StatusNoContent)
}
